// Package commands implements nfsclient's noun-verb CLI surface over the
// Go client library (package client): file, edit, folder, access, and
// version (checkpoint) operations, following a noun-verb command tree.
package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shrey715/network-file-system-sub002/client"
	"github.com/shrey715/network-file-system-sub002/internal/cli/output"
)

var (
	nmAddr       string
	username     string
	outputFormat string
	dialTimeout  = 5 * time.Second
)

var rootCmd = &cobra.Command{
	Use:   "nfsclient",
	Short: "Client for the distributed text-file service",
	Long: `nfsclient drives one session against a Name Manager: file
lifecycle, sentence-locked editing, folders, ACLs and access requests,
and named checkpoints.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nmAddr, "nm", "127.0.0.1:9000", "Name Manager address")
	rootCmd.PersistentFlags().StringVar(&username, "user", "", "username for this session")
	_ = rootCmd.MarkPersistentFlagRequired("user")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")

	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(accessCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// dial opens and returns a session against nm, closed by the caller.
func dial() (*client.Client, error) {
	return client.Dial(nmAddr, username, dialTimeout)
}

// printer builds the output.Printer for the format the caller chose with
// --output, defaulting to a plain table on an unrecognized value.
func printer() *output.Printer {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		format = output.FormatTable
	}
	return output.NewPrinter(os.Stdout, format, false)
}
