package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SuggestRequest represents the triage suggest API request.
type SuggestRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Topics      []string `json:"topics,omitempty"`
}

// Suggestion mirrors the structured suggestion the API returns.
type Suggestion struct {
	Summary           string  `json:"summary"`
	ConfidenceOverall float64 `json:"confidence_overall"`
	RootCauses        []struct {
		Cause        string   `json:"cause"`
		Confidence   float64  `json:"confidence"`
		EvidenceRefs []string `json:"evidence_refs"`
	} `json:"root_causes"`
	RecommendedSteps []struct {
		Step         string   `json:"step"`
		Rationale    string   `json:"rationale"`
		EvidenceRefs []string `json:"evidence_refs"`
	} `json:"recommended_steps"`
	ValidationSteps    []string `json:"validation_steps"`
	RollbackProcedures []string `json:"rollback_procedures"`
	Questions          []string `json:"questions"`
}

// EvidenceRef represents one evidence item the suggestion cites.
type EvidenceRef struct {
	Ref        string  `json:"ref"`
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// SuggestResponse represents the triage suggest API response.
type SuggestResponse struct {
	Evidence   []EvidenceRef `json:"evidence"`
	Suggestion *Suggestion   `json:"suggestion,omitempty"`
	Raw        string        `json:"raw,omitempty"`
}

// SuggestCmd creates the suggest command.
func SuggestCmd() *cobra.Command {
	var (
		description string
		topics      []string
	)

	cmd := &cobra.Command{
		Use:   "suggest <title>",
		Short: "Get a grounded resolution suggestion",
		Long:  "Asks for a resolution suggestion grounded in stored knowledge.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSuggest(cmd, args[0], description, topics, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Problem description")
	cmd.Flags().StringSliceVar(&topics, "topics", nil, "Topic tags to focus retrieval")

	return cmd
}

func runSuggest(cmd *cobra.Command, title, description string, topics []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/triage/suggest", SuggestRequest{
		Title:       title,
		Description: description,
		Topics:      topics,
	})
	if err != nil {
		return err
	}

	var result SuggestResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}

	printSuggestion(result)
	return nil
}

func printSuggestion(result SuggestResponse) {
	if result.Raw != "" {
		fmt.Println("Model returned unstructured output:")
		fmt.Println(result.Raw)
		return
	}
	s := result.Suggestion
	if s == nil {
		fmt.Println("No suggestion returned.")
		return
	}

	fmt.Printf("%s (confidence %.2f)\n", s.Summary, s.ConfidenceOverall)

	if len(s.RootCauses) > 0 {
		fmt.Println("\nLikely causes:")
		for _, rc := range s.RootCauses {
			fmt.Printf("  - %s (%.2f, cites %v)\n", rc.Cause, rc.Confidence, rc.EvidenceRefs)
		}
	}
	if len(s.RecommendedSteps) > 0 {
		fmt.Println("\nRecommended steps:")
		for i, rs := range s.RecommendedSteps {
			fmt.Printf("  %d. %s (cites %v)\n", i+1, rs.Step, rs.EvidenceRefs)
		}
	}
	if len(s.ValidationSteps) > 0 {
		fmt.Println("\nValidation:")
		for _, v := range s.ValidationSteps {
			fmt.Printf("  - %s\n", v)
		}
	}
	if len(s.Questions) > 0 {
		fmt.Println("\nOpen questions:")
		for _, q := range s.Questions {
			fmt.Printf("  - %s\n", q)
		}
	}
	if len(result.Evidence) > 0 {
		fmt.Println("\nEvidence:")
		for _, e := range result.Evidence {
			fmt.Printf("  [%s] %s:%s %s (score %.3f)\n", e.Ref, e.SourceType, e.SourceID, e.Title, e.Score)
		}
	}
}
