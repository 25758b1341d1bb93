// Package main is the entry point for the itnt extension host tools.
package main

import (
	"fmt"
	"os"
)

// Version information set at build time via ldflags.
var (
	version = "0.0.1"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (built: %s)", version, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
