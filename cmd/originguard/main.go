package main

import (
	"os"

	"github.com/tkingovr/originguard/cmd/originguard/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
