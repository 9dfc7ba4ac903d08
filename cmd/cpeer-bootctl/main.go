package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/otarecovery/cmd/cpeer-bootctl/app"
)

func main() {
	app.NewApp().Run()
}
