// Package commands implements the nm process's CLI commands.
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
	Use:   "nm",
	Short: "Name Manager: namespace, routing, and access-control authority",
	Long: `nm runs the Name Manager for the distributed text-file service: the
authoritative folder tree, file records, ACLs, and Storage Server registry.
Clients connect to nm first for every namespace operation, and are handed a
Storage Server address for data-path operations (read, sentence-locked
write, undo, stream, exec).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./nmfs.yaml)")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string { return cfgFile }
