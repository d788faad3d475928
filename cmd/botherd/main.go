// Package main is the entry point for the botherd CLI.
package main

import (
	"os"

	"github.com/botherd/botherd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
