// Package main is the entry point for the vibeplane CLI.
// The CLI is the developer terminal tool for interacting with the vibeplane API.
package main

import (
	"os"
	"vibeplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
