// Package sqlite provides the SQLite-backed conversation log.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Will-Langhart/shieldai-sub001/pkg/conversation"
)

// Store implements conversation.Store using SQLite as the backend.
type Store struct {
	db        *sql.DB
	tableName string
	node      *snowflake.Node
}

// Config contains configuration for creating a SQLite conversation store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use (default: "conversation_messages").
	TableName string
}

// NewStore creates a new SQLite conversation store.
func NewStore(cfg *Config) (*Store, error) {
	if cfg.TableName == "" {
		cfg.TableName = "conversation_messages"
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewConversationStore: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewConversationStore: %w", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("NewConversationStore: %w", err)
	}

	store := &Store{
		db:        db,
		tableName: cfg.TableName,
		node:      node,
	}

	if err := store.initTable(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// initTable initializes the table structure.
func (s *Store) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTable: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_conversation ON %s(conversation_id, created_at)
	`, s.tableName, s.tableName)
	if _, err := s.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTable: %w", err)
	}

	return nil
}

// NewConversationID returns a fresh conversation id.
func (s *Store) NewConversationID() string {
	return uuid.NewString()
}

// AppendMessage appends a message to its conversation.
func (s *Store) AppendMessage(ctx context.Context, message *conversation.StoredMessage) error {
	if message.ConversationID == "" || message.UserID == "" {
		return fmt.Errorf("AppendMessage: conversation id and user id are required")
	}
	if message.ID == "" {
		message.ID = s.node.Generate().String()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
		message.ID,
		message.ConversationID,
		message.UserID,
		message.Role,
		message.Content,
		message.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("AppendMessage: %w", err)
	}

	return nil
}

// GetMessages returns a conversation's messages in chronological order.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]*conversation.StoredMessage, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, user_id, role, content, created_at
		FROM %s
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("GetMessages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*conversation.StoredMessage
	for rows.Next() {
		var message conversation.StoredMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.UserID,
			&message.Role,
			&message.Content,
			&message.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("GetMessages: %w", err)
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// DeleteConversation removes all of a conversation's messages.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE conversation_id = ?", s.tableName)

	if _, err := s.db.ExecContext(ctx, query, conversationID); err != nil {
		return fmt.Errorf("DeleteConversation: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
