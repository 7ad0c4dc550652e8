// Command testharbord runs the test execution ingestion/query service.
package main

import (
	"fmt"
	"os"

	"github.com/3leaps/testharbor/internal/cmd"
)

// version, commit, and buildDate are overridden at link time via
// -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
