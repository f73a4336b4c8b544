// Package mysql provides a MySQL-family backed vector index.
//
// Vectors are stored as JSON; filters run in SQL and similarity is computed
// in memory over the filtered candidate set, so the backend works on plain
// MySQL as well as MySQL-compatible stores with no vector extension.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore"
)

// Client implements vectorstore.Index using a MySQL-compatible database.
type Client struct {
	db         *sql.DB
	tableName  string
	dimensions int
}

// Config contains MySQL configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	TableName  string
	Dimensions int
}

// NewClient creates a new MySQL index client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.TableName == "" {
		cfg.TableName = "memories"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
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
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			conversation_id VARCHAR(255),
			vector JSON NOT NULL,
			metadata JSON,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_user_conv (user_id, conversation_id)
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
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
		INSERT INTO %s (id, user_id, conversation_id, vector, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			user_id = VALUES(user_id),
			conversation_id = VALUES(conversation_id),
			vector = VALUES(vector),
			metadata = VALUES(metadata)
	`, c.tableName)

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		metadataString(record.Metadata, "user_id"),
		metadataString(record.Metadata, "conversation_id"),
		string(vectorJSON),
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// Query performs filtered cosine-similarity search.
func (c *Client) Query(ctx context.Context, vector []float64, opts *vectorstore.QueryOptions) ([]*vectorstore.Match, error) {
	if opts == nil {
		opts = &vectorstore.QueryOptions{}
	}

	whereClause, args := buildWhereClause(opts.Filter)

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
		var id string
		var vectorRaw, metadataRaw []byte
		if err := rows.Scan(&id, &vectorRaw, &metadataRaw); err != nil {
			return nil, fmt.Errorf("Query: %w", err)
		}

		var stored []float64
		if err := json.Unmarshal(vectorRaw, &stored); err != nil {
			return nil, fmt.Errorf("Query: parse vector: %w", err)
		}

		match := &vectorstore.Match{
			ID:    id,
			Score: cosineSimilarity(vector, stored),
		}
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
	whereClause, args := buildWhereClause(filter)

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

// buildWhereClause builds a WHERE clause. Indexed keys compare against their
// columns; other keys compare against the JSON metadata field.
func buildWhereClause(filter vectorstore.Filter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	for key, value := range filter {
		switch key {
		case "user_id", "conversation_id":
			conditions = append(conditions, fmt.Sprintf("%s = ?", key))
		default:
			conditions = append(conditions, fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(metadata, '$.%s')) = ?", key))
		}
		args = append(args, fmt.Sprintf("%v", value))
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// metadataString extracts a flat string value from record metadata.
func metadataString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key]; ok {
		return fmt.Sprintf("%v", value)
	}
	return ""
}

// cosineSimilarity calculates the cosine similarity between two vectors.
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
