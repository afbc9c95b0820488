// Package main is the entry point for the neid CLI binary.
package main

import (
	"os"

	"github.com/caltech-ipac/goneid/cmd/neid/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
