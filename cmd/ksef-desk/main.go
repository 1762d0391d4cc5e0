package main

import (
	"os"

	"github.com/custodia-labs/ksef-desk/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version string

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
