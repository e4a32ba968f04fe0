// Package main provides the entry point for the confmap CLI tool.
package main

import (
	"github.com/agentstation/confmap/cmd/confmap/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
