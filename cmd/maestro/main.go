// Package main is the entry point for the maestro CLI.
package main

import (
	"os"

	"maestro/cmd/maestro/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
