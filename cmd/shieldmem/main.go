package main

import (
	"os"

	"github.com/Will-Langhart/shieldai-sub001/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
