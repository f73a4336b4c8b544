package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Will-Langhart/shieldai-sub001/pkg/conversation"
)

// countingStore records how often each transcript is actually read.
type countingStore struct {
	messages map[string][]*conversation.StoredMessage
	reads    int
}

func newCountingStore() *countingStore {
	return &countingStore{messages: make(map[string][]*conversation.StoredMessage)}
}

func (s *countingStore) AppendMessage(ctx context.Context, message *conversation.StoredMessage) error {
	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], message)
	return nil
}

func (s *countingStore) GetMessages(ctx context.Context, conversationID string) ([]*conversation.StoredMessage, error) {
	s.reads++
	return s.messages[conversationID], nil
}

func (s *countingStore) DeleteConversation(ctx context.Context, conversationID string) error {
	delete(s.messages, conversationID)
	return nil
}

func (s *countingStore) Close() error { return nil }

func setupCachedStore(t *testing.T) (*conversation.CachedStore, *countingStore) {
	t.Helper()

	inner := newCountingStore()
	// A bound this small relies on the capacity floor: sized literally,
	// ristretto's admission policy would reject every set.
	cached, err := conversation.NewCachedStore(inner, &conversation.CacheConfig{
		MaxConversations: 16,
		TTL:              time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cached.Close() })

	return cached, inner
}

func TestCachedStoreServesFromCache(t *testing.T) {
	cached, inner := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, cached.AppendMessage(ctx, &conversation.StoredMessage{
		ConversationID: "conv1", UserID: "alice", Role: "user", Content: "hi",
	}))

	first, err := cached.GetMessages(ctx, "conv1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	cached.Wait()

	second, err := cached.GetMessages(ctx, "conv1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.reads)
}

func TestCachedStoreInvalidatesOnAppend(t *testing.T) {
	cached, inner := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, cached.AppendMessage(ctx, &conversation.StoredMessage{
		ConversationID: "conv1", UserID: "alice", Role: "user", Content: "hi",
	}))
	_, err := cached.GetMessages(ctx, "conv1")
	require.NoError(t, err)
	cached.Wait()

	// The append drops the cached transcript; the next read sees the new
	// message.
	require.NoError(t, cached.AppendMessage(ctx, &conversation.StoredMessage{
		ConversationID: "conv1", UserID: "alice", Role: "assistant", Content: "hello",
	}))

	messages, err := cached.GetMessages(ctx, "conv1")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, 2, inner.reads)
}

func TestCachedStoreInvalidatesOnDelete(t *testing.T) {
	cached, _ := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, cached.AppendMessage(ctx, &conversation.StoredMessage{
		ConversationID: "conv1", UserID: "alice", Role: "user", Content: "hi",
	}))
	_, err := cached.GetMessages(ctx, "conv1")
	require.NoError(t, err)
	cached.Wait()

	require.NoError(t, cached.DeleteConversation(ctx, "conv1"))

	messages, err := cached.GetMessages(ctx, "conv1")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
