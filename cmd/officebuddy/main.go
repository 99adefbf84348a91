// Command officebuddy is the operator CLI: an interactive chat client for a
// running service and catalogue tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "officebuddy",
		Short:         "OfficeBuddy workplace assistant CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newChatCmd(), newCatalogCmd())
	return rootCmd
}
