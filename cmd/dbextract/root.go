package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbextract",
	Short: "Checkpointed time-windowed extraction from SQL databases to files",
	Long: `dbextract pulls rows from a SQL database in fixed-size time windows and
writes them into per-period output files (daily, weekly or monthly buckets).

Progress is checkpointed around every window, so an interrupted run can be
resumed without refetching finished windows or duplicating output.

Features:
  - Postgres, SQL Server and SQLite sources
  - gob, CSV and XLSX output formats
  - Durable checkpoint with file or SQLite backend
  - Configurable resume policy (continue, overwrite, abort)
  - Automatic retry with exponential backoff for transient source failures
  - Secure credential storage using the system keychain`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .dbextract.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")

	// Version template
	rootCmd.SetVersionTemplate(`dbextract {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
