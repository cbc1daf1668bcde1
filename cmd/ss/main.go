// Command ss runs one Storage Server process.
package main

import (
	"fmt"
	"os"

	"github.com/shrey715/network-file-system-sub002/cmd/ss/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ss: %v\n", err)
		os.Exit(1)
	}
}
