package main

import (
	"github.com/autopeer-io/otarecovery/cmd/cpeer-installer/app"
)

func main() {
	app.NewApp().Run()
}
