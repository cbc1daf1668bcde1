package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shrey715/network-file-system-sub002/internal/cli/output"
	"github.com/shrey715/network-file-system-sub002/internal/cli/prompt"
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Create, delete, read, and inspect files",
}

var (
	fileFolder string
	fileName   string
	fileAll    bool
	fileLong   bool
	fileForce  bool
)

func init() {
	for _, c := range []*cobra.Command{fileCreateCmd, fileDeleteCmd, fileReadCmd, fileInfoCmd, fileListCmd, fileMoveCmd, fileStreamCmd, fileExecCmd} {
		c.Flags().StringVar(&fileFolder, "folder", "", "folder path (default: root)")
	}
	for _, c := range []*cobra.Command{fileCreateCmd, fileDeleteCmd, fileReadCmd, fileInfoCmd, fileMoveCmd, fileStreamCmd, fileExecCmd} {
		c.Flags().StringVar(&fileName, "name", "", "file name")
		_ = c.MarkFlagRequired("name")
	}
	fileDeleteCmd.Flags().BoolVarP(&fileForce, "force", "f", false, "skip the confirmation prompt")
	fileListCmd.Flags().BoolVar(&fileAll, "all", false, "list every file in the folder, not just the caller's")
	fileListCmd.Flags().BoolVar(&fileLong, "long", false, "include owner and word/char counts")
	fileMoveCmd.Flags().StringVar(&moveDest, "dest", "", "destination folder")
	_ = fileMoveCmd.MarkFlagRequired("dest")

	fileCmd.AddCommand(fileCreateCmd, fileDeleteCmd, fileReadCmd, fileInfoCmd, fileListCmd, fileMoveCmd, fileStreamCmd, fileExecCmd)
}

var fileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new empty file",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.CreateFile(fileFolder, fileName); err != nil {
			return err
		}
		fmt.Println("created")
		return nil
	},
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("delete %s/%s", fileFolder, fileName), fileForce)
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
		if err := c.DeleteFile(fileFolder, fileName); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	},
}

var fileReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Print a file's current body",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		body, err := c.Read(fileFolder, fileName)
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

var fileInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print a file's owner and word/char counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		info, err := c.Info(fileFolder, fileName)
		if err != nil {
			return err
		}
		return output.SimpleTable(cmd.OutOrStdout(), [][2]string{
			{"owner", info.Owner},
			{"words", fmt.Sprintf("%d", info.Words)},
			{"chars", fmt.Sprintf("%d", info.Chars)},
		})
	},
}

var fileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files in a folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		names, err := c.List(fileFolder, fileAll, fileLong)
		if err != nil {
			return err
		}
		return printList(names, fileLong)
	},
}

// printList renders file.list's output: a one-column table of names, or
// when long is set, a name/owner/words/chars table parsed from the
// server's tab-separated lines.
func printList(lines []string, long bool) error {
	var table *output.TableData
	if long {
		table = output.NewTableData("NAME", "OWNER", "WORDS", "CHARS")
	} else {
		table = output.NewTableData("NAME")
	}
	for _, line := range lines {
		table.AddRow(strings.Split(line, "\t")...)
	}
	return printer().Print(table)
}

var moveDest string

var fileMoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Relocate a file to another folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Move(fileFolder, fileName, moveDest); err != nil {
			return err
		}
		fmt.Println("moved")
		return nil
	},
}

var fileStreamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Print each word of a file on its own line, uncommitted edits included",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		lines, err := c.Stream(fileFolder, fileName)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(lines, "\n"))
		return nil
	},
}

var fileExecCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute a file's body as a shell command on its hosting Storage Server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		out, err := c.Exec(fileFolder, fileName)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}
