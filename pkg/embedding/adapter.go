package embedding

import (
	"context"
	"fmt"
	"math"
)

// Adapter wraps a Provider and adapts its native output width to the width
// required by the vector index.
//
// Embedding models evolve and may change native output width; a vector index
// is created with a fixed width and is expensive to migrate. The adapter
// decouples the two with a fixed, reproducible reduction so that re-embedding
// the same text always yields the same stored vector.
type Adapter struct {
	provider Provider

	// targetDim is the width required by the vector index.
	targetDim int
}

// NewAdapter creates an Adapter producing vectors of targetDim.
//
// Returns ErrUnsupportedDimension if the provider's native width cannot be
// adapted to targetDim (only identity and strict reduction are defined).
func NewAdapter(provider Provider, targetDim int) (*Adapter, error) {
	if targetDim <= 0 {
		return nil, fmt.Errorf("NewAdapter: target dimension %d: %w", targetDim, ErrUnsupportedDimension)
	}
	if provider.Dimensions() < targetDim {
		return nil, fmt.Errorf("NewAdapter: cannot adapt %d -> %d: %w",
			provider.Dimensions(), targetDim, ErrUnsupportedDimension)
	}
	return &Adapter{provider: provider, targetDim: targetDim}, nil
}

// Dimensions returns the adapted output width.
func (a *Adapter) Dimensions() int {
	return a.targetDim
}

// Embed embeds text and adapts the result to the target width.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := a.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty vector", ErrEmbeddingUnavailable)
	}
	return AdaptDimension(vec, a.targetDim)
}

// EmbedBatch embeds texts and adapts every result to the target width.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vecs, err := a.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
			ErrEmbeddingUnavailable, len(vecs), len(texts))
	}
	out := make([][]float64, len(vecs))
	for i, vec := range vecs {
		adapted, err := AdaptDimension(vec, a.targetDim)
		if err != nil {
			return nil, err
		}
		out[i] = adapted
	}
	return out, nil
}

// Close closes the underlying provider.
func (a *Adapter) Close() error {
	return a.provider.Close()
}

// AdaptDimension adapts a vector to targetDim.
//
// If the vector already has targetDim elements it is returned unchanged.
// If the vector is wider, it is reduced by deterministic weighted-average
// downsampling: the source index range is partitioned into targetDim
// contiguous buckets sized by len(vector)/targetDim, and each output element
// is the linearly-decreasing-weighted average of its bucket (earlier source
// elements weighted more heavily). The reduction is order-preserving and
// bit-for-bit reproducible; it is not PCA or a learned projection.
//
// Returns ErrUnsupportedDimension for any other (source, target) pair.
func AdaptDimension(vector []float64, targetDim int) ([]float64, error) {
	if targetDim <= 0 {
		return nil, fmt.Errorf("AdaptDimension: target dimension %d: %w", targetDim, ErrUnsupportedDimension)
	}
	if len(vector) == targetDim {
		return vector, nil
	}
	if len(vector) < targetDim {
		return nil, fmt.Errorf("AdaptDimension: cannot expand %d -> %d: %w",
			len(vector), targetDim, ErrUnsupportedDimension)
	}

	ratio := float64(len(vector)) / float64(targetDim)
	out := make([]float64, targetDim)

	for i := 0; i < targetDim; i++ {
		start := int(float64(i) * ratio)
		end := int(math.Ceil(float64(i+1) * ratio))
		if end > len(vector) {
			end = len(vector)
		}
		if end <= start {
			end = start + 1
		}

		size := end - start
		var sum, weightSum float64
		for j := start; j < end; j++ {
			// Earlier elements in the bucket carry more weight.
			weight := 1.0 - float64(j-start)/float64(size+1)
			sum += vector[j] * weight
			weightSum += weight
		}
		out[i] = sum / weightSum
	}

	return out, nil
}

// CosineSimilarity computes the cosine similarity of two equal-length vectors.
//
// Returns ErrDimensionMismatch when the lengths differ. Zero vectors yield a
// similarity of 0.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("CosineSimilarity: %d vs %d: %w", len(a), len(b), ErrDimensionMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
