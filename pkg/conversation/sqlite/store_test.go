package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Will-Langhart/shieldai-sub001/pkg/conversation"
	"github.com/Will-Langhart/shieldai-sub001/pkg/conversation/sqlite"
)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "conversations.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestAppendAndGetMessages(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	conversationID := store.NewConversationID()

	first := &conversation.StoredMessage{
		ConversationID: conversationID,
		UserID:         "alice",
		Role:           "user",
		Content:        "How do I pray?",
	}
	require.NoError(t, store.AppendMessage(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())

	second := &conversation.StoredMessage{
		ConversationID: conversationID,
		UserID:         "alice",
		Role:           "assistant",
		Content:        "Start with honesty and gratitude.",
		Timestamp:      time.Now(),
	}
	require.NoError(t, store.AppendMessage(ctx, second))

	messages, err := store.GetMessages(ctx, conversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Chronological order.
	assert.Equal(t, "How do I pray?", messages[0].Content)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "Start with honesty and gratitude.", messages[1].Content)
}

func TestGetMessagesEmptyConversation(t *testing.T) {
	store := setupStore(t)

	messages, err := store.GetMessages(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDeleteConversation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	keep := store.NewConversationID()
	drop := store.NewConversationID()
	for _, conversationID := range []string{keep, drop} {
		require.NoError(t, store.AppendMessage(ctx, &conversation.StoredMessage{
			ConversationID: conversationID,
			UserID:         "alice",
			Role:           "user",
			Content:        "hello",
		}))
	}

	require.NoError(t, store.DeleteConversation(ctx, drop))

	dropped, err := store.GetMessages(ctx, drop)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	kept, err := store.GetMessages(ctx, keep)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestNewConversationIDUnique(t *testing.T) {
	store := setupStore(t)

	first := store.NewConversationID()
	second := store.NewConversationID()
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
