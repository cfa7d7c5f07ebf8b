// Package main is the entry point for the payablesctl CLI.
package main

import (
	"os"

	"payables/cmd/payablesctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
