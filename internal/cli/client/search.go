package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the memory search API request.
type SearchRequest struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

// SearchHit represents one search result.
type SearchHit struct {
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		sourceType string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memory",
		Long:  "Searches stored knowledge using semantic similarity.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, args[0], sourceType, limit, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sourceType, "source-type", "s", "", "Filter by source type (ticket, sop, postmortem, note)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 8, "Maximum number of results")

	return cmd
}

func runSearch(cmd *cobra.Command, query, sourceType string, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/memory/search", SearchRequest{
		Query:      query,
		Limit:      limit,
		SourceType: sourceType,
	})
	if err != nil {
		return err
	}

	var hits []SearchHit
	if err := json.Unmarshal(resp.Data, &hits); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		return printJSON(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, hit := range hits {
		fmt.Printf("%d. [%s:%s#%d] %s (score %.3f)\n", i+1, hit.SourceType, hit.SourceID, hit.ChunkIndex, hit.Title, hit.Score)
		snippet := hit.Content
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		fmt.Printf("   %s\n", strings.ReplaceAll(snippet, "\n", " "))
	}
	return nil
}
