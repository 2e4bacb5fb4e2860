// Package main provides the entry point for the wslboot CLI.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		if !errors.Is(err, errIncomplete) {
			printError(err)
		}
		os.Exit(1)
	}
}
