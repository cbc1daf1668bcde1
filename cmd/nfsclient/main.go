// Command nfsclient drives one session against a Name Manager.
package main

import (
	"fmt"
	"os"

	"github.com/shrey715/network-file-system-sub002/cmd/nfsclient/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nfsclient: %v\n", err)
		os.Exit(1)
	}
}
