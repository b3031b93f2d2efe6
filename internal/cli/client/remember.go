package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// RememberRequest represents the memory upsert API request.
type RememberRequest struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

// RememberResponse represents the memory upsert API response.
type RememberResponse struct {
	ChunksUpserted int `json:"chunks_upserted"`
}

// RememberCmd creates the remember command.
func RememberCmd() *cobra.Command {
	var (
		title    string
		content  string
		filePath string
	)

	cmd := &cobra.Command{
		Use:   "remember <source-type> <source-id>",
		Short: "Store a document into memory",
		Long: `Stores a document into memory so future triage can retrieve it.

Content is taken from --content, --file, or stdin, in that order.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRemember(cmd, args[0], args[1], title, content, filePath, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Document content")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read content from a file")

	return cmd
}

func runRemember(cmd *cobra.Command, sourceType, sourceID, title, content, filePath string, outputJSON bool) error {
	if content == "" && filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filePath, err)
		}
		content = string(data)
	}
	if content == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		content = string(data)
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/memory", RememberRequest{
		SourceType: sourceType,
		SourceID:   sourceID,
		Title:      title,
		Content:    content,
	})
	if err != nil {
		return err
	}

	var result RememberResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}

	fmt.Printf("Remembered %s/%s (%d chunks)\n", sourceType, sourceID, result.ChunksUpserted)
	return nil
}
