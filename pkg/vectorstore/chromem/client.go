// Package chromem provides an embedded, pure-Go vector index backed by
// chromem-go. It needs no external service, which makes it the default
// backend for local development and tests.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore"
)

// Client implements vectorstore.Index using chromem-go.
//
// chromem-go keys documents by id and matches where-filters against a flat
// string metadata map, so the full metadata document is serialized into the
// document content and the filterable keys are mirrored into chromem's
// metadata.
type Client struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int
	mu         sync.RWMutex
}

// Config contains chromem configuration.
type Config struct {
	// Path is the persistence directory. Empty means in-memory only.
	Path string

	// CollectionName is the collection to use (default: "memories").
	CollectionName string

	// Dimensions is the configured vector width.
	Dimensions int
}

// NewClient creates a new chromem index client.
func NewClient(cfg *Config) (*Client, error) {
	name := cfg.CollectionName
	if name == "" {
		name = "memories"
	}

	var db *chromem.DB
	var err error
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("NewChromemClient: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always supplied by the caller, so no embedding func.
	collection, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("NewChromemClient: create collection: %w", err)
	}

	return &Client{
		db:         db,
		collection: collection,
		dimensions: cfg.Dimensions,
	}, nil
}

// Upsert inserts or overwrites a record by id.
func (c *Client) Upsert(ctx context.Context, record *vectorstore.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	contentJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	doc := chromem.Document{
		ID:        record.ID,
		Content:   string(contentJSON),
		Embedding: toFloat32(record.Vector),
		Metadata:  flattenMetadata(record.Metadata),
	}

	if err := c.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// Query performs filtered cosine-similarity search.
func (c *Client) Query(ctx context.Context, vector []float64, opts *vectorstore.QueryOptions) ([]*vectorstore.Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if opts == nil {
		opts = &vectorstore.QueryOptions{}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	// chromem rejects nResults larger than the collection size.
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	where := filterToWhere(opts.Filter)

	results, err := c.collection.QueryEmbedding(ctx, toFloat32(vector), topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}

	matches := make([]*vectorstore.Match, 0, len(results))
	for _, result := range results {
		match := &vectorstore.Match{
			ID:    result.ID,
			Score: float64(result.Similarity),
		}
		if opts.IncludeMetadata && result.Content != "" {
			if err := json.Unmarshal([]byte(result.Content), &match.Metadata); err != nil {
				return nil, fmt.Errorf("Query: parse metadata: %w", err)
			}
		}
		matches = append(matches, match)
	}

	return matches, nil
}

// DeleteByFilter bulk-deletes all records matching the filter.
func (c *Client) DeleteByFilter(ctx context.Context, filter vectorstore.Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collection.Count() == 0 {
		return nil
	}

	if err := c.collection.Delete(ctx, filterToWhere(filter), nil); err != nil {
		return fmt.Errorf("DeleteByFilter: %w", err)
	}

	return nil
}

// DescribeStats reports the record count and configured dimension.
func (c *Client) DescribeStats(ctx context.Context) (*vectorstore.Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &vectorstore.Stats{
		TotalCount: c.collection.Count(),
		Dimension:  c.dimensions,
	}, nil
}

// Close is a no-op; chromem persists on write when configured with a path.
func (c *Client) Close() error {
	return nil
}

// flattenMetadata mirrors filterable keys into chromem's flat string map.
func flattenMetadata(metadata map[string]interface{}) map[string]string {
	flat := make(map[string]string, len(metadata))
	for key, value := range metadata {
		switch value.(type) {
		case string, int, int64, float64, bool:
			flat[key] = fmt.Sprintf("%v", value)
		}
	}
	return flat
}

// filterToWhere converts a Filter to chromem's where map.
func filterToWhere(filter vectorstore.Filter) map[string]string {
	if len(filter) == 0 {
		return nil
	}
	where := make(map[string]string, len(filter))
	for key, value := range filter {
		where[key] = fmt.Sprintf("%v", value)
	}
	return where
}

func toFloat32(vector []float64) []float32 {
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(v)
	}
	return out
}
