package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SOPDraftRequest represents the SOP draft API request.
type SOPDraftRequest struct {
	TicketTitle       string   `json:"ticket_title"`
	TicketDescription string   `json:"ticket_description,omitempty"`
	ResolutionNotes   string   `json:"resolution_notes"`
	Topics            []string `json:"topics,omitempty"`
}

// SOPDraft mirrors the structured SOP the API returns.
type SOPDraft struct {
	ProblemDescription string   `json:"problem_description"`
	Symptoms           []string `json:"symptoms"`
	RootCause          string   `json:"root_cause"`
	ResolutionSteps    []string `json:"resolution_steps"`
	ValidationSteps    []string `json:"validation_steps"`
	RollbackProcedures []string `json:"rollback_procedures"`
	References         []string `json:"references"`
}

// SOPDraftResponse represents the SOP draft API response.
type SOPDraftResponse struct {
	Evidence  []EvidenceRef `json:"evidence"`
	SOP       *SOPDraft     `json:"sop,omitempty"`
	Raw       string        `json:"raw,omitempty"`
	Questions []string      `json:"questions,omitempty"`
}

// SOPCmd creates the sop command, which drafts an SOP from a resolved ticket.
func SOPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sop <ticket-id>",
		Short: "Draft an SOP from a resolved ticket",
		Long:  "Fetches a resolved ticket and drafts a standard operating procedure from its resolution, grounded in stored knowledge.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSOP(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runSOP(cmd *cobra.Command, ticketID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/tickets/" + ticketID)
	if err != nil {
		return err
	}

	var ticket Ticket
	if err := json.Unmarshal(resp.Data, &ticket); err != nil {
		return fmt.Errorf("failed to parse ticket: %w", err)
	}
	if ticket.ResolutionNotes == "" {
		return fmt.Errorf("ticket %s has no resolution notes; resolve it first", ticketID)
	}

	resp, err = api.Post("/triage/sop-draft", SOPDraftRequest{
		TicketTitle:       ticket.Title,
		TicketDescription: ticket.Description,
		ResolutionNotes:   ticket.ResolutionNotes,
		Topics:            ticket.Topics,
	})
	if err != nil {
		return err
	}

	var result SOPDraftResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}

	printSOP(result)
	return nil
}

func printSOP(result SOPDraftResponse) {
	if result.Raw != "" {
		fmt.Println("Model returned unstructured output:")
		fmt.Println(result.Raw)
		return
	}
	sop := result.SOP
	if sop == nil {
		fmt.Println("No SOP draft returned.")
		return
	}

	fmt.Printf("Problem: %s\n", sop.ProblemDescription)
	if sop.RootCause != "" {
		fmt.Printf("Root cause: %s\n", sop.RootCause)
	}
	if len(sop.Symptoms) > 0 {
		fmt.Println("\nSymptoms:")
		for _, s := range sop.Symptoms {
			fmt.Printf("  - %s\n", s)
		}
	}
	if len(sop.ResolutionSteps) > 0 {
		fmt.Println("\nResolution steps:")
		for i, s := range sop.ResolutionSteps {
			fmt.Printf("  %d. %s\n", i+1, s)
		}
	}
	if len(sop.ValidationSteps) > 0 {
		fmt.Println("\nValidation:")
		for _, s := range sop.ValidationSteps {
			fmt.Printf("  - %s\n", s)
		}
	}
	if len(sop.RollbackProcedures) > 0 {
		fmt.Println("\nRollback:")
		for _, s := range sop.RollbackProcedures {
			fmt.Printf("  - %s\n", s)
		}
	}
	if len(sop.References) > 0 {
		fmt.Printf("\nReferences: %v\n", sop.References)
	}
	if len(result.Questions) > 0 {
		fmt.Println("\nOpen questions:")
		for _, q := range result.Questions {
			fmt.Printf("  - %s\n", q)
		}
	}
}
