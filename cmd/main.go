package main

import (
	"os"

	"github.com/LLIu33/swot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
