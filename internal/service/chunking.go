package service

import "strings"

// ChunkConfig controls chunking for memory embeddings.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
}

// DefaultChunkConfig provides the default chunking policy: 1400-character
// windows with 200 characters of overlap so a fact split across a boundary
// is likely to appear whole in at least one chunk.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1400,
		Overlap:  200,
	}
}

// chunkText splits text into overlapping windows of at most cfg.MaxChars
// runes. Empty input yields no chunks. Input that fits in one window is
// returned whole. Otherwise the window start advances by MaxChars - Overlap
// until the end of the text is covered; every rune of the input falls inside
// at least one window.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxChars {
		cfg.Overlap = DefaultChunkConfig().Overlap
		if cfg.Overlap >= cfg.MaxChars {
			cfg.Overlap = cfg.MaxChars / 2
		}
	}

	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	step := cfg.MaxChars - cfg.Overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}
	}

	return chunks
}
