// Package mock provides a deterministic embedding provider for tests and
// examples. Vectors are derived from a hash of the input text, so the same
// text always embeds to the same vector without any network dependency.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// Provider is a hash-based embedding provider.
type Provider struct {
	dimensions int
}

// New creates a mock provider with the given native width.
func New(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &Provider{dimensions: dimensions}
}

// Embed creates a deterministic unit vector from the text's hash.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float64, p.dimensions)
	for i := range vec {
		// LCG keyed on the text hash.
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float64(int64(seed)) / float64(math.MaxInt64)
	}

	return normalize(vec), nil
}

// EmbedBatch embeds each text independently.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the native width.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}

func normalize(vec []float64) []float64 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
