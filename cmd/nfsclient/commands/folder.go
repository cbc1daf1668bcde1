package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shrey715/network-file-system-sub002/internal/cli/output"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Create folders and view their contents",
}

var folderPath string

func init() {
	for _, c := range []*cobra.Command{folderCreateCmd, folderViewCmd} {
		c.Flags().StringVar(&folderPath, "path", "", "folder path")
		_ = c.MarkFlagRequired("path")
	}
	folderCmd.AddCommand(folderCreateCmd, folderViewCmd)
}

var folderCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a folder owned by the caller",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.CreateFolder(folderPath); err != nil {
			return err
		}
		fmt.Println("created")
		return nil
	},
}

var folderViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show a folder's owner and files",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		owner, files, err := c.ViewFolder(folderPath)
		if err != nil {
			return err
		}
		fmt.Printf("owner: %s\n", owner)
		table := output.NewTableData("NAME")
		for _, f := range files {
			table.AddRow(f)
		}
		return printer().Print(table)
	},
}
