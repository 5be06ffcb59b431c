// Package main is the entry point for the pinstate CLI.
package main

import (
	"os"

	"github.com/pinmap/pinstate/cmd/pinstate/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
