package main

import (
	"os"

	"github.com/attio-labs/attio-mcp/cmd/attio-mcp/commands"
)

// Version is the current version of attio-mcp
// This must match the git tag when creating releases
const Version = "v1.0.0"

func main() {
	commands.SetVersion(Version)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
