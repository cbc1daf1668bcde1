package commands

import (
	"github.com/spf13/cobra"

	"github.com/shrey715/network-file-system-sub002/internal/cli/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect the users connected to the Name Manager",
}

func init() {
	userCmd.AddCommand(userViewCmd)
}

var userViewCmd = &cobra.Command{
	Use:   "view",
	Short: "List the usernames currently connected to the Name Manager",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		folders, err := c.View()
		if err != nil {
			return err
		}
		table := output.NewTableData("USER")
		for _, f := range folders {
			table.AddRow(f)
		}
		return printer().Print(table)
	},
}
