// Package postgres provides a PostgreSQL + pgvector backed vector index.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore"
)

// Client implements vectorstore.Index on PostgreSQL with the pgvector
// extension. Ranking runs in the database via the <=> cosine-distance
// operator.
type Client struct {
	db         *sql.DB
	tableName  string
	dimensions int
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	TableName  string
	Dimensions int
	SSLMode    string
}

// NewClient creates a new PostgreSQL index client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.TableName == "" {
		cfg.TableName = "memories"
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
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

// initTables enables pgvector and creates the table and indexes.
func (c *Client) initTables(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			conversation_id VARCHAR(255),
			embedding vector(%d) NOT NULL,
			metadata JSONB,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, c.tableName, c.dimensions)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_conv ON %s(user_id, conversation_id)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: create index: %w", err)
	}

	// HNSW index for approximate search; pgvector falls back to exact scan
	// when the index is unavailable.
	hnswQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s
		USING hnsw (embedding vector_cosine_ops)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, hnswQuery); err != nil {
		return fmt.Errorf("initTables: create vector index: %w", err)
	}

	return nil
}

// Upsert inserts or overwrites a record by id.
func (c *Client) Upsert(ctx context.Context, record *vectorstore.Record) error {
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, conversation_id, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			conversation_id = EXCLUDED.conversation_id,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = CURRENT_TIMESTAMP
	`, c.tableName)

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		metadataString(record.Metadata, "user_id"),
		metadataString(record.Metadata, "conversation_id"),
		vectorToString(record.Vector),
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// Query performs filtered cosine-similarity search via pgvector.
func (c *Client) Query(ctx context.Context, vector []float64, opts *vectorstore.QueryOptions) ([]*vectorstore.Match, error) {
	if opts == nil {
		opts = &vectorstore.QueryOptions{}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	whereClause, filterArgs := buildWhereClause(opts.Filter, 2)

	query := fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, c.tableName, whereClause, len(filterArgs)+2)

	args := []interface{}{vectorToString(vector)}
	args = append(args, filterArgs...)
	args = append(args, topK)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*vectorstore.Match
	for rows.Next() {
		var id string
		var metadataRaw []byte
		var similarity float64
		if err := rows.Scan(&id, &metadataRaw, &similarity); err != nil {
			return nil, fmt.Errorf("Query: %w", err)
		}

		match := &vectorstore.Match{ID: id, Score: similarity}
		if opts.IncludeMetadata && len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &match.Metadata); err != nil {
				return nil, fmt.Errorf("Query: parse metadata: %w", err)
			}
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}

// DeleteByFilter bulk-deletes all records matching the filter.
func (c *Client) DeleteByFilter(ctx context.Context, filter vectorstore.Filter) error {
	whereClause, args := buildWhereClause(filter, 1)

	query := fmt.Sprintf("DELETE FROM %s %s", c.tableName, whereClause)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("DeleteByFilter: %w", err)
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

// vectorToString converts a vector to pgvector's text format.
func vectorToString(vector []float64) string {
	if len(vector) == 0 {
		return "[]"
	}

	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = fmt.Sprintf("%f", v)
	}

	return "[" + strings.Join(parts, ",") + "]"
}
