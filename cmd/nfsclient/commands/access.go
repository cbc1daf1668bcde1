package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shrey715/network-file-system-sub002/internal/cli/output"
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Grant, revoke, request, and adjudicate per-file access",
}

var (
	accessFolder string
	accessName   string
	accessUser   string
	accessRead   bool
	accessWrite  bool
)

func init() {
	for _, c := range []*cobra.Command{accessGrantCmd, accessRevokeCmd, accessRequestCmd, accessApproveCmd, accessDenyCmd, accessListCmd} {
		c.Flags().StringVar(&accessFolder, "folder", "", "folder path (default: root)")
		c.Flags().StringVar(&accessName, "name", "", "file name")
		_ = c.MarkFlagRequired("name")
	}
	for _, c := range []*cobra.Command{accessGrantCmd, accessRevokeCmd, accessApproveCmd, accessDenyCmd} {
		c.Flags().StringVar(&accessUser, "to", "", "other user's name")
		_ = c.MarkFlagRequired("to")
	}
	for _, c := range []*cobra.Command{accessGrantCmd, accessRequestCmd} {
		c.Flags().BoolVarP(&accessRead, "read", "R", false, "grant or request read access")
		c.Flags().BoolVarP(&accessWrite, "write", "W", false, "grant or request write access")
	}

	accessCmd.AddCommand(accessGrantCmd, accessRevokeCmd, accessRequestCmd, accessApproveCmd, accessDenyCmd, accessListCmd)
}

var accessGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant another user read and/or write access to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Grant(accessFolder, accessName, accessUser, accessRead, accessWrite); err != nil {
			return err
		}
		fmt.Println("granted")
		return nil
	},
}

var accessRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke another user's access to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Revoke(accessFolder, accessName, accessUser); err != nil {
			return err
		}
		fmt.Println("revoked")
		return nil
	},
}

var accessRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request read and/or write access to a file the caller doesn't own",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.RequestAccess(accessFolder, accessName, accessRead, accessWrite); err != nil {
			return err
		}
		fmt.Println("requested")
		return nil
	},
}

var accessApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a pending access request",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.ApproveRequest(accessFolder, accessName, accessUser); err != nil {
			return err
		}
		fmt.Println("approved")
		return nil
	},
}

var accessDenyCmd = &cobra.Command{
	Use:   "deny",
	Short: "Deny a pending access request",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.DenyRequest(accessFolder, accessName, accessUser); err != nil {
			return err
		}
		fmt.Println("denied")
		return nil
	},
}

var accessListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a file's pending access requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		reqs, err := c.ViewRequests(accessFolder, accessName)
		if err != nil {
			return err
		}
		table := output.NewTableData("REQUESTER")
		for _, r := range reqs {
			table.AddRow(r)
		}
		return printer().Print(table)
	},
}
