// Package main is the entry point for the onlevel CLI.
package main

import (
	"os"

	"onlevel-reserving/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
