// Command scanwell is the scan orchestration CLI and API server.
package main

import (
	"github.com/scanwell/scanwell/cmd/cli"
)

// Build information - set by ldflags during release builds.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
