package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/grandcamel/splunk-as/internal/format"
	"github.com/grandcamel/splunk-as/internal/splunk"
)

// Version information (set via ldflags at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Global options
var (
	profileName string
	configPath  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "splunk-as",
	Short: "Command-line client for the Splunk REST API",
	Long: `splunk-as is a command-line client and thin SDK for Splunk's REST API.
It manages search jobs, runs ad-hoc SPL queries, discovers metadata,
queries metrics, and exposes server administration endpoints.

Connection settings come from profiles (~/.config/splunk-as/config.yaml),
the credentials file written by 'splunk-as auth login', and SPLUNK_*
environment variables, in increasing priority.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, mapping failures to exit codes:
// 1 validation, 2 authentication, 3 authorization, 4 not found,
// 5 rate limit, 6 search quota, 7 server error, 130 interrupted.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		format.Error("%v", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	switch splunk.ErrorKind(err) {
	case splunk.KindValidation:
		return 1
	case splunk.KindAuthentication:
		return 2
	case splunk.KindAuthorization:
		return 3
	case splunk.KindNotFound:
		return 4
	case splunk.KindRateLimit:
		return 5
	case splunk.KindSearchQuota:
		return 6
	case splunk.KindServer:
		return 7
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Profile to use (or SPLUNK_PROFILE env var)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Alternate config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug output")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(authCmd)
}
