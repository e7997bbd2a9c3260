// Package main provides the b2genn command, a GeNN project generator.
package main

import (
	"os"

	"github.com/leapstack-labs/b2genn/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
