// File: cmd/nyx/main.go
package main

import (
	"fmt"
	"os"
)

// Version information set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
