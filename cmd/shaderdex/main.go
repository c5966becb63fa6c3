// Package main provides the entry point for the shaderdex CLI.
package main

import (
	"os"

	"github.com/shaderdex/shaderdex/cmd/shaderdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
