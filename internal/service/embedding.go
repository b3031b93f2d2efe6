package service

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultEmbeddingDimensions is the vector width of the persisted schema.
// Changing it invalidates every stored vector, so it must match the
// migration that created the memory_items table.
const DefaultEmbeddingDimensions = 384

// Embedder maps text to a fixed-length vector. Implementations must be
// deterministic: the same text always yields the same vector, across
// restarts. The error return exists for remote, learned-model-backed
// implementations; HashEmbedder never fails.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HashEmbedder is the fixed embedding scheme of this system: tokenize on
// non-alphanumeric boundaries, FNV-1a hash each lowercased token, scatter +1
// or -1 (the hash's low bit picks the sign) into bucket hash mod D, then
// L2-normalize. It is a structural stand-in for a learned model and
// preserves no semantics beyond token overlap, but it is total,
// deterministic and dimension-stable, which is all downstream code relies
// on.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a HashEmbedder with the given vector width.
// Non-positive dimensions fall back to the default.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Dimensions returns the vector width this embedder produces.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed maps text to a unit vector of length Dimensions. Empty text (or text
// with no tokens) maps to the exact zero vector; it is left unnormalized
// rather than divided by zero.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()

		bucket := int(sum % uint32(e.dimensions))
		if sum&1 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vec, nil
	}

	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// isZeroVector reports whether vec has no magnitude. Token-free text embeds
// to the zero vector, and cosine distance against it is undefined (NaN), so
// zero vectors must never reach the store or a search.
func isZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(strings.TrimSpace(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
