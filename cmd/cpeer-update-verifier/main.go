package main

import (
	"github.com/autopeer-io/otarecovery/cmd/cpeer-update-verifier/app"
)

func main() {
	app.NewApp().Run()
}
