// Package conversation provides the durable conversation log the context
// composer reads same-conversation history from, plus a bounded cache
// decorator for hot transcripts.
package conversation

import (
	"context"
	"time"
)

// StoredMessage is a single persisted conversation turn.
type StoredMessage struct {
	// ID is the message's unique identifier.
	ID string

	// ConversationID groups messages into a conversation.
	ConversationID string

	// UserID is the owner of the conversation.
	UserID string

	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string

	// Timestamp is when the message was created.
	Timestamp time.Time
}

// Store is the conversation log contract.
type Store interface {
	// AppendMessage appends a message to its conversation, assigning an id
	// and timestamp if unset.
	AppendMessage(ctx context.Context, message *StoredMessage) error

	// GetMessages returns a conversation's messages in chronological order.
	GetMessages(ctx context.Context, conversationID string) ([]*StoredMessage, error)

	// DeleteConversation removes a conversation and all of its messages.
	DeleteConversation(ctx context.Context, conversationID string) error

	// Close closes the store and releases resources.
	Close() error
}
