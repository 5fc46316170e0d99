// Package main provides the entry point for the railrec CLI.
package main

import "github.com/railstation/railrec/cmd/railrec/cmd"

// Version information populated by the build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
