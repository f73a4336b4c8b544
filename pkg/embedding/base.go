// Package embedding provides interfaces for text embedding providers and the
// dimension adapter that reconciles a provider's native vector width with the
// width of the configured vector index.
package embedding

import (
	"context"
	"errors"
)

// Predefined errors for embedding and vector-math failures.
var (
	// ErrEmbeddingUnavailable indicates the embedding capability was
	// unreachable or returned a malformed response. Callers on the chat path
	// must treat this as non-fatal.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrUnsupportedDimension indicates a (source, target) dimension pair
	// with no defined adaptation rule. This is a configuration error and
	// should surface at startup, not per request.
	ErrUnsupportedDimension = errors.New("unsupported dimension adaptation")

	// ErrDimensionMismatch indicates similarity was requested over vectors of
	// unequal length. This is a programming error.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Provider defines the interface for embedding providers.
//
// All embedding implementations (OpenAI, mock) must implement this interface.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple text strings into vector embeddings.
	// The result is element-wise: embeddings[i] corresponds to texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the native width of vectors produced by this provider.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}
