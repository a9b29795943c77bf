package main

import (
	"fmt"
	"os"

	"github.com/cristianradulescu/beautify-ls/internal/cli"
)

// Set through -ldflags at release time.
var (
	version   = ""
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	err := cli.Run(os.Args[1:], cli.Options{
		BuildInfo: cli.BuildInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "beautify-ls: %v\n", err)
		os.Exit(1)
	}
}
