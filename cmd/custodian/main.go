// Package main is the entry point for the custodian daemon and CLI.
package main

import (
	"os"

	"github.com/mrz1836/custodian/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
