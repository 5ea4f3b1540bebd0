// Package main is the entry point for the Otus DPI flow classifier.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/otusdpi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
