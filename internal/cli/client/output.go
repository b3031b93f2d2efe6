package client

import (
	"encoding/json"
	"fmt"
)

// printJSON pretty-prints any value as JSON for --output mode.
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
