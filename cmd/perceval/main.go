package main

import (
	"os"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
