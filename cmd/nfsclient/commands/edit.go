package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Lock, write, and unlock sentences; undo back to a file's last write-lock snapshot",
}

var (
	editFolder   string
	editName     string
	editSentence int
	editWord     int
	editContent  string
)

func init() {
	for _, c := range []*cobra.Command{editLockCmd, editWordCmd, editUnlockCmd, editUndoCmd} {
		c.Flags().StringVar(&editFolder, "folder", "", "folder path (default: root)")
		c.Flags().StringVar(&editName, "name", "", "file name")
		_ = c.MarkFlagRequired("name")
	}
	for _, c := range []*cobra.Command{editLockCmd, editWordCmd, editUnlockCmd} {
		c.Flags().IntVar(&editSentence, "sentence", 0, "sentence index")
	}
	editWordCmd.Flags().IntVar(&editWord, "word", -1, "word index (-1 replaces the whole sentence)")
	editWordCmd.Flags().StringVar(&editContent, "content", "", "replacement text")

	editCmd.AddCommand(editLockCmd, editWordCmd, editUnlockCmd, editUndoCmd)
}

// lock and unlock are standalone commands for completeness with the
// wire protocol's verbs, but since a sentence lock lives on the
// Storage Server connection that took it, a lock taken
// by one nfsclient invocation is released the moment that process
// exits. word is the verb actually meant for scripting: it opens one
// session and runs lock, write, unlock in sequence before exiting.
var editLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Take the exclusive lock on a sentence (released when this process exits)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		es, err := c.BeginEdit(editFolder, editName)
		if err != nil {
			return err
		}
		defer es.Close()
		if err := es.Lock(editSentence); err != nil {
			return err
		}
		fmt.Println("locked sentence " + strconv.Itoa(editSentence))
		return nil
	},
}

var editWordCmd = &cobra.Command{
	Use:   "word",
	Short: "Replace a word (or whole sentence) within a locked sentence",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		es, err := c.BeginEdit(editFolder, editName)
		if err != nil {
			return err
		}
		defer es.Close()
		if err := es.Lock(editSentence); err != nil {
			return err
		}
		if err := es.WriteWord(editSentence, editWord, editContent); err != nil {
			return err
		}
		return es.Unlock(editSentence)
	},
}

var editUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Release the exclusive lock on a sentence",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		es, err := c.BeginEdit(editFolder, editName)
		if err != nil {
			return err
		}
		defer es.Close()
		return es.Unlock(editSentence)
	},
}

var editUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Restore a file's body to its state when the most recent write lock was granted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Undo(editFolder, editName); err != nil {
			return err
		}
		fmt.Println("undone")
		return nil
	},
}
