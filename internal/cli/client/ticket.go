package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Ticket mirrors the ticket the API returns.
type Ticket struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	Topics          []string   `json:"topics,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// CreateTicketRequest represents the ticket create API request.
type CreateTicketRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Topics      []string `json:"topics,omitempty"`
}

// ResolveTicketRequest represents the ticket resolve API request.
type ResolveTicketRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// TicketCmd creates the ticket command group.
func TicketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Manage tickets",
		Long:  "Create, list, inspect and resolve tickets.",
	}

	cmd.AddCommand(ticketCreateCmd())
	cmd.AddCommand(ticketListCmd())
	cmd.AddCommand(ticketGetCmd())
	cmd.AddCommand(ticketResolveCmd())

	return cmd
}

func ticketCreateCmd() *cobra.Command {
	var (
		description string
		priority    string
		topics      []string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/tickets", CreateTicketRequest{
				Title:       args[0],
				Description: description,
				Priority:    priority,
				Topics:      topics,
			})
			if err != nil {
				return err
			}

			var ticket Ticket
			if err := json.Unmarshal(resp.Data, &ticket); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(ticket)
			}
			fmt.Printf("Created ticket %s (%s, %s)\n", ticket.ID, ticket.Status, ticket.Priority)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Ticket description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority (low, medium, high, critical)")
	cmd.Flags().StringSliceVar(&topics, "topics", nil, "Topic tags")

	return cmd
}

func ticketListCmd() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := fmt.Sprintf("/tickets?limit=%d", limit)
			if status != "" {
				path += "&status=" + status
			}

			resp, err := api.Get(path)
			if err != nil {
				return err
			}

			var tickets []Ticket
			if err := json.Unmarshal(resp.Data, &tickets); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(tickets)
			}
			if len(tickets) == 0 {
				fmt.Println("No tickets found.")
				return nil
			}
			for _, t := range tickets {
				fmt.Printf("%s  [%s/%s]  %s\n", t.ID, t.Status, t.Priority, t.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (open, in_progress, resolved, closed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")

	return cmd
}

func ticketGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/tickets/" + args[0])
			if err != nil {
				return err
			}

			var ticket Ticket
			if err := json.Unmarshal(resp.Data, &ticket); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(ticket)
			}
			fmt.Printf("%s  [%s/%s]\n%s\n", ticket.ID, ticket.Status, ticket.Priority, ticket.Title)
			if ticket.Description != "" {
				fmt.Printf("\n%s\n", ticket.Description)
			}
			if ticket.ResolutionNotes != "" {
				fmt.Printf("\nResolution:\n%s\n", ticket.ResolutionNotes)
			}
			return nil
		},
	}
}

func ticketResolveCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a ticket",
		Long:  "Marks a ticket resolved. The resolution is indexed into memory so future triage can cite it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/tickets/"+args[0]+"/resolve", ResolveTicketRequest{
				ResolutionNotes: notes,
			})
			if err != nil {
				return err
			}

			var ticket Ticket
			if err := json.Unmarshal(resp.Data, &ticket); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(ticket)
			}
			fmt.Printf("Resolved ticket %s\n", ticket.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "m", "", "Resolution notes (required)")
	_ = cmd.MarkFlagRequired("notes")

	return cmd
}
