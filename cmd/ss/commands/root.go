// Package commands implements the ss process's CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ss",
	Short: "Storage Server: file bodies, sentence locks, undo, and checkpoints",
	Long: `ss runs a Storage Server for the distributed text-file service: it
hosts file bodies, enforces per-sentence exclusive locks, maintains the
one-slot undo snapshot and named checkpoints, and reports its liveness and
inventory to the Name Manager on a heartbeat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./ssfs.yaml)")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string { return cfgFile }
