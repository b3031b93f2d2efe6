package domain

// EvidenceItem is a retrieved chunk re-shaped for prompt construction. Ref
// tokens ("E1", "E2", ...) are assigned in rank order within a single
// retrieval call and are only meaningful for that call; evidence items are
// never persisted.
type EvidenceItem struct {
	Ref        string         `json:"ref"`
	SourceType string         `json:"source_type"`
	SourceID   string         `json:"source_id"`
	ChunkIndex int            `json:"chunk_index"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Score      float64        `json:"score"`
}

// RefSet returns the set of ref tokens in items, for validating generated
// citations against the evidence actually supplied.
func RefSet(items []EvidenceItem) map[string]struct{} {
	refs := make(map[string]struct{}, len(items))
	for _, item := range items {
		refs[item.Ref] = struct{}{}
	}
	return refs
}
