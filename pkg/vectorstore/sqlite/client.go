// Package sqlite provides a SQLite-backed vector index.
//
// SQLite is a lightweight, file-based database suitable for local development
// and small deployments. Vectors are stored as JSON strings in TEXT fields,
// and similarity is computed in memory over the filtered candidate set.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore"
)

// Client implements vectorstore.Index using SQLite as the backend.
type Client struct {
	db         *sql.DB
	tableName  string
	dimensions int
}

// Config contains configuration for creating a SQLite index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use (default: "memories").
	TableName string

	// Dimensions is the configured vector width.
	Dimensions int
}

// NewClient creates a new SQLite index client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.TableName == "" {
		cfg.TableName = "memories"
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:         db,
		tableName:  cfg.TableName,
		dimensions: cfg.Dimensions,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the table structure.
//
// user_id and conversation_id are promoted to indexed columns so the common
// filters run in SQL; the remaining metadata lives in a JSON TEXT field.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			conversation_id TEXT,
			vector TEXT NOT NULL,
			metadata TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_conv ON %s(user_id, conversation_id)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Upsert inserts or overwrites a record by id.
func (c *Client) Upsert(ctx context.Context, record *vectorstore.Record) error {
	vectorJSON, err := json.Marshal(record.Vector)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, conversation_id, vector, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			conversation_id = excluded.conversation_id,
			vector = excluded.vector,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, c.tableName)

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		metadataString(record.Metadata, "user_id"),
		metadataString(record.Metadata, "conversation_id"),
		string(vectorJSON),
		string(metadataJSON),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// Query performs filtered cosine-similarity search.
//
// SQLite has no native vector operations, so similarity is computed in memory
// after loading the filter-matching rows.
func (c *Client) Query(ctx context.Context, vector []float64, opts *vectorstore.QueryOptions) ([]*vectorstore.Match, error) {
	if opts == nil {
		opts = &vectorstore.QueryOptions{}
	}

	whereClause, args, residual := buildWhereClause(opts.Filter)

	query := fmt.Sprintf(`
		SELECT id, vector, metadata
		FROM %s
		%s
	`, c.tableName, whereClause)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*vectorstore.Match
	for rows.Next() {
		var id, vectorStr, metadataStr string
		if err := rows.Scan(&id, &vectorStr, &metadataStr); err != nil {
			return nil, fmt.Errorf("Query: %w", err)
		}

		var stored []float64
		if err := json.Unmarshal([]byte(vectorStr), &stored); err != nil {
			return nil, fmt.Errorf("Query: parse vector: %w", err)
		}

		var metadata map[string]interface{}
		if metadataStr != "" {
			if err := json.Unmarshal([]byte(metadataStr), &metadata); err != nil {
				return nil, fmt.Errorf("Query: parse metadata: %w", err)
			}
		}

		if !matchesFilter(metadata, residual) {
			continue
		}

		match := &vectorstore.Match{
			ID:    id,
			Score: cosineSimilarity(vector, stored),
		}
		if opts.IncludeMetadata {
			match.Metadata = metadata
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if opts.TopK > 0 && len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}

	return matches, nil
}

// DeleteByFilter bulk-deletes all records matching the filter.
func (c *Client) DeleteByFilter(ctx context.Context, filter vectorstore.Filter) error {
	whereClause, args, residual := buildWhereClause(filter)

	if len(residual) == 0 {
		query := fmt.Sprintf("DELETE FROM %s %s", c.tableName, whereClause)
		if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("DeleteByFilter: %w", err)
		}
		return nil
	}

	// Residual metadata keys require a scan over the SQL-filtered rows.
	query := fmt.Sprintf("SELECT id, metadata FROM %s %s", c.tableName, whereClause)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("DeleteByFilter: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id, metadataStr string
		if err := rows.Scan(&id, &metadataStr); err != nil {
			return fmt.Errorf("DeleteByFilter: %w", err)
		}
		var metadata map[string]interface{}
		if metadataStr != "" {
			if err := json.Unmarshal([]byte(metadataStr), &metadata); err != nil {
				return fmt.Errorf("DeleteByFilter: parse metadata: %w", err)
			}
		}
		if matchesFilter(metadata, residual) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.tableName)
	for _, id := range ids {
		if _, err := c.db.ExecContext(ctx, deleteQuery, id); err != nil {
			return fmt.Errorf("DeleteByFilter: %w", err)
		}
	}

	return nil
}

// DescribeStats reports the record count and configured dimension.
func (c *Client) DescribeStats(ctx context.Context) (*vectorstore.Stats, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", c.tableName)
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return nil, fmt.Errorf("DescribeStats: %w", err)
	}

	return &vectorstore.Stats{
		TotalCount: count,
		Dimension:  c.dimensions,
	}, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
// Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
