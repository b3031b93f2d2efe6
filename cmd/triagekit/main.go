package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsgrid/triagekit/internal/cli"
	"github.com/opsgrid/triagekit/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "triagekit",
		Short: "Triagekit CLI - evidence-grounded issue triage",
		Long: `Triagekit CLI manages tickets and the knowledge memory behind triage suggestions.

Environment variables:
  TRIAGEKIT_API_KEY   API key for authentication
  TRIAGEKIT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.RememberCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.SuggestCmd())
	rootCmd.AddCommand(client.SOPCmd())
	rootCmd.AddCommand(client.TicketCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
