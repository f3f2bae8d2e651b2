// Package main is the entry point for the errtally CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/errtally/cmd/errtally/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
