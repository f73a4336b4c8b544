// Package vectorstore defines the narrow contract the memory engine requires
// from an approximate-nearest-neighbor store, along with record and filter
// types shared by all backends.
//
// The engine treats the store as an external collaborator: upsert by id,
// filtered cosine-similarity query, filtered bulk delete, and stats. Every
// backend ranks by cosine similarity and matches filters as exact-match
// conjunctions.
package vectorstore

import "context"

// Record is the unit stored in the vector index: a vector plus the metadata
// the memory engine derives for a conversation message.
type Record struct {
	// ID uniquely identifies the record. Upserting the same ID overwrites
	// the prior record wholesale.
	ID string

	// Vector is the embedding; its length must equal the index dimension.
	Vector []float64

	// Metadata carries the message content and derived signals. Filterable
	// keys (user_id, conversation_id) must be flat string values.
	Metadata map[string]interface{}
}

// Match is a single query result.
type Match struct {
	// ID is the matched record's id.
	ID string

	// Score is the cosine similarity to the query vector.
	Score float64

	// Metadata is the stored metadata (nil unless requested).
	Metadata map[string]interface{}
}

// Filter is a conjunctive exact-match metadata filter.
type Filter map[string]interface{}

// Stats describes the current state of the index.
type Stats struct {
	// TotalCount is the number of records in the index.
	TotalCount int

	// Dimension is the configured vector width.
	Dimension int
}

// QueryOptions contains options for Query operations.
type QueryOptions struct {
	// TopK is the maximum number of matches to return.
	TopK int

	// Filter restricts matches to records whose metadata matches every
	// key/value pair exactly.
	Filter Filter

	// IncludeMetadata controls whether stored metadata is returned with
	// each match.
	IncludeMetadata bool
}

// Index is the contract every vector store backend must satisfy.
//
// All operations may fail transiently; the memory engine never propagates
// such failures into the chat path.
type Index interface {
	// Upsert inserts or wholesale-overwrites a record by id.
	Upsert(ctx context.Context, record *Record) error

	// Query returns up to opts.TopK records ranked by cosine similarity to
	// the given vector, restricted to records matching opts.Filter.
	Query(ctx context.Context, vector []float64, opts *QueryOptions) ([]*Match, error)

	// DeleteByFilter bulk-deletes every record matching the filter.
	DeleteByFilter(ctx context.Context, filter Filter) error

	// DescribeStats reports the record count and configured dimension.
	DescribeStats(ctx context.Context) (*Stats, error)

	// Close closes the index and releases resources.
	Close() error
}
