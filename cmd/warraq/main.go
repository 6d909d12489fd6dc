package main

import (
	"os"

	"github.com/warraq-labs/warraq/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
