package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsgrid/triagekit/internal/cli"
	"github.com/opsgrid/triagekit/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "triagekitd",
		Short: "Triagekit daemon",
		Long:  "Triagekit daemon for running the API server, applying migrations and bulk-importing knowledge",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.ImportCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
