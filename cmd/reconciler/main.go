package main

import (
	"os"

	"invoice-grn-reconciliation/cmd/reconciler/cmd"
)

// Build information, set via ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
