package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shrey715/network-file-system-sub002/internal/cli/output"
	"github.com/shrey715/network-file-system-sub002/internal/cli/prompt"
	"github.com/shrey715/network-file-system-sub002/internal/cli/timeutil"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Create, inspect, and revert to named checkpoints",
}

var (
	versionFolder string
	versionName   string
	versionTag    string
	versionForce  bool
)

func init() {
	for _, c := range []*cobra.Command{versionCheckpointCmd, versionViewCmd, versionRevertCmd, versionListCmd} {
		c.Flags().StringVar(&versionFolder, "folder", "", "folder path (default: root)")
		c.Flags().StringVar(&versionName, "name", "", "file name")
		_ = c.MarkFlagRequired("name")
	}
	for _, c := range []*cobra.Command{versionCheckpointCmd, versionViewCmd, versionRevertCmd} {
		c.Flags().StringVar(&versionTag, "tag", "", "checkpoint tag")
		_ = c.MarkFlagRequired("tag")
	}

	versionRevertCmd.Flags().BoolVarP(&versionForce, "force", "f", false, "skip the confirmation prompt")

	versionCmd.AddCommand(versionCheckpointCmd, versionViewCmd, versionRevertCmd, versionListCmd)
}

var versionCheckpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Save the file's current body under a named checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Checkpoint(versionFolder, versionName, versionTag); err != nil {
			return err
		}
		fmt.Println("checkpointed " + versionTag)
		return nil
	},
}

var versionViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the body saved under a named checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		body, err := c.ViewCheckpoint(versionFolder, versionName, versionTag)
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

var versionRevertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Replace the file's current body with a named checkpoint's",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("revert %s/%s to %s", versionFolder, versionName, versionTag), versionForce)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Revert(versionFolder, versionName, versionTag); err != nil {
			return err
		}
		fmt.Println("reverted to " + versionTag)
		return nil
	},
}

var versionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a file's checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		cps, err := c.ListCheckpoints(versionFolder, versionName)
		if err != nil {
			return err
		}
		table := output.NewTableData("TAG", "CREATED")
		for _, cp := range cps {
			table.AddRow(cp.Tag, timeutil.FormatTime(cp.CreatedAt.Format(timeRFC3339)))
		}
		return printer().Print(table)
	},
}

const timeRFC3339 = "2006-01-02T15:04:05Z07:00"
