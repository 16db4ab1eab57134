// Command dashvctl runs DashV operations from the command line: token
// provisioning over SSH and one-shot discovery.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dashvctl",
		Short:         "DashV command line tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(provisionCmd(), discoverCmd())
	return root
}
