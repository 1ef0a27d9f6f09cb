package main

import (
	"os"

	"github.com/evalboard/evalboard/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
