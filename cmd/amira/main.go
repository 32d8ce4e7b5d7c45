package main

import (
	"os"

	"github.com/amira-labs/amira-voice/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
