package main

import (
	"os"

	"github.com/SanaAdeelKhan/geo-gap-compass/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
