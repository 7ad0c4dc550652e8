// Package cmd wires the cobra command tree: the root command plus the
// serve subcommand that starts the ingestion/query service.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// buildInfo carries link-time version metadata, set by SetVersionInfo
// from main's -ldflags.
var buildInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{Version: "dev", Commit: "none", BuildDate: "unknown"}

// SetVersionInfo installs link-time version metadata, called from main
// before Execute.
func SetVersionInfo(version, commit, buildDate string) {
	buildInfo.Version = version
	buildInfo.Commit = commit
	buildInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "testharbord",
	Short: "testharbor: test execution ingestion and query service",
	Long: `testharbord runs the ingestion/query service for test execution
results: a bounded async write pipeline, NDJSON streaming ingest, prefix
suggestions, and retention sweeping over an embedded SQL store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command, returning any error for main to report
// and translate into a process exit code.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(os.Stdout, "testharbord %s (commit %s, built %s)\n",
			buildInfo.Version, buildInfo.Commit, buildInfo.BuildDate)
		return err
	},
}
