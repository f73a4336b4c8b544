package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Will-Langhart/shieldai-sub001/pkg/conversation"
	"github.com/Will-Langhart/shieldai-sub001/pkg/embedding"
	"github.com/Will-Langhart/shieldai-sub001/pkg/memory"
)

// fakeConvStore is an in-memory conversation.Store with injectable failures.
type fakeConvStore struct {
	messages map[string][]*conversation.StoredMessage
	getErr   error
}

func newFakeConvStore() *fakeConvStore {
	return &fakeConvStore{messages: make(map[string][]*conversation.StoredMessage)}
}

func (f *fakeConvStore) AppendMessage(ctx context.Context, message *conversation.StoredMessage) error {
	f.messages[message.ConversationID] = append(f.messages[message.ConversationID], message)
	return nil
}

func (f *fakeConvStore) GetMessages(ctx context.Context, conversationID string) ([]*conversation.StoredMessage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.messages[conversationID], nil
}

func (f *fakeConvStore) DeleteConversation(ctx context.Context, conversationID string) error {
	delete(f.messages, conversationID)
	return nil
}

func (f *fakeConvStore) Close() error { return nil }

func newContextService(t *testing.T, provider *stubProvider, index *fakeIndex, convStore conversation.Store) *memory.Service {
	t.Helper()
	adapter, err := embedding.NewAdapter(provider, testDims)
	require.NoError(t, err)

	service, err := memory.NewServiceWithComponents(adapter, index, convStore)
	require.NoError(t, err)
	return service
}

func seedTranscript(store *fakeConvStore, conversationID, userID string, contents ...string) {
	base := time.Now().Add(-time.Hour)
	for i, content := range contents {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		store.messages[conversationID] = append(store.messages[conversationID], &conversation.StoredMessage{
			ID:             conversationID + "-" + content[:2],
			ConversationID: conversationID,
			UserID:         userID,
			Role:           role,
			Content:        content,
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestEnhancedConversationContextMergesTranscriptAndRecall(t *testing.T) {
	convStore := newFakeConvStore()
	seedTranscript(convStore, "current", "alice",
		"Tell me about grace today",
		"Grace is unmerited favor.",
	)

	index := newFakeIndex()
	index.seed("past-hit", "alice", "earlier", []float64{1, 0, 0, 0})
	index.seed("same-conv", "alice", "current", []float64{1, 0, 0, 0})

	provider := &stubProvider{vectors: map[string][]float64{
		"more about grace": {1, 0, 0, 0},
	}}
	service := newContextService(t, provider, index, convStore)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "more about grace")

	require.NotNil(t, memoryContext)
	assert.Equal(t, "current", memoryContext.ConversationID)
	assert.Equal(t, "alice", memoryContext.UserID)

	// Transcript messages carry relevance 1.0 and outrank recall; the
	// indexed record from the current conversation is not repeated.
	require.Len(t, memoryContext.Messages, 3)
	assert.Equal(t, 1.0, memoryContext.Messages[0].Relevance)
	assert.Equal(t, 1.0, memoryContext.Messages[1].Relevance)
	assert.Equal(t, "past-hit", memoryContext.Messages[2].ID)
	assert.Equal(t, "seeded past-hit", memoryContext.Messages[2].Content)

	// Equal relevance is broken by most recent timestamp.
	assert.Equal(t, "Grace is unmerited favor.", memoryContext.Messages[0].Content)
}

func TestEnhancedConversationContextCapped(t *testing.T) {
	convStore := newFakeConvStore()
	seedTranscript(convStore, "current", "alice",
		"one message", "two message", "three message", "four message",
	)
	service := newContextService(t, &stubProvider{}, newFakeIndex(), convStore)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "anything", memory.WithContextTopK(2))

	assert.Len(t, memoryContext.Messages, 2)
}

func TestEnhancedConversationContextAggregates(t *testing.T) {
	convStore := newFakeConvStore()
	long := "I am so thankful for the hope and joy I have found through prayer, " +
		strings.Repeat("and I want to share everything about this journey in detail ", 3)
	seedTranscript(convStore, "current", "alice",
		long,
		"That is wonderful to hear, grace abounds.",
	)
	service := newContextService(t, &stubProvider{}, newFakeIndex(), convStore)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "tell me more")

	assert.Contains(t, memoryContext.KeyTopics, "hope")
	assert.Contains(t, memoryContext.KeyTopics, "prayer")
	assert.Equal(t, memory.TonePositive, memoryContext.EmotionalTone)

	require.NotNil(t, memoryContext.UserPreferences)
	assert.Equal(t, "detailed", memoryContext.UserPreferences.CommunicationStyle)
	assert.Equal(t, memory.TonePositive, memoryContext.UserPreferences.EmotionalPattern)
}

func TestEnhancedConversationContextConciseStyle(t *testing.T) {
	convStore := newFakeConvStore()
	seedTranscript(convStore, "current", "alice", "short question", "short answer")
	service := newContextService(t, &stubProvider{}, newFakeIndex(), convStore)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "hi")

	require.NotNil(t, memoryContext.UserPreferences)
	assert.Equal(t, "concise", memoryContext.UserPreferences.CommunicationStyle)
}

func TestEnhancedConversationContextTonePerOccurrence(t *testing.T) {
	convStore := newFakeConvStore()
	// Four negative word hits against two positive ones. The window tone
	// counts occurrences across the joined contents, not per-message votes,
	// so one hit-heavy message outweighs two mildly positive ones.
	seedTranscript(convStore, "current", "alice",
		"The pain and pain and pain of this suffering",
		"joy abounds",
		"joy again",
	)
	service := newContextService(t, &stubProvider{}, newFakeIndex(), convStore)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "tell me more")

	assert.Equal(t, memory.ToneNegative, memoryContext.EmotionalTone)

	require.NotNil(t, memoryContext.UserPreferences)
	assert.Equal(t, memory.ToneNegative, memoryContext.UserPreferences.EmotionalPattern)
}

func TestEnhancedConversationContextTopicsCappedOverWindow(t *testing.T) {
	convStore := newFakeConvStore()
	seedTranscript(convStore, "current", "alice",
		"faith and prayer",
		"salvation and grace",
		"forgiveness and love",
	)
	service := newContextService(t, &stubProvider{}, newFakeIndex(), convStore)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "tell me more")

	// Six vocabulary terms appear across the window; the extraction runs
	// once over the joined contents, so the cap applies to the whole set.
	assert.Equal(t, []string{"faith", "prayer", "salvation", "grace", "forgiveness"},
		memoryContext.KeyTopics)
}

func TestEnhancedConversationContextStyleFractionalMean(t *testing.T) {
	convStore := newFakeConvStore()
	// User message lengths 100 and 101: the mean is 100.5, just over the
	// detailed threshold.
	seedTranscript(convStore, "current", "alice",
		strings.Repeat("a", 100),
		"short answer",
		strings.Repeat("b", 101),
	)
	service := newContextService(t, &stubProvider{}, newFakeIndex(), convStore)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "hi")

	require.NotNil(t, memoryContext.UserPreferences)
	assert.Equal(t, "detailed", memoryContext.UserPreferences.CommunicationStyle)
}

func TestEnhancedConversationContextDegradesOnTranscriptFailure(t *testing.T) {
	convStore := newFakeConvStore()
	convStore.getErr = errors.New("log unavailable")

	index := newFakeIndex()
	index.seed("past-hit", "alice", "earlier", []float64{1, 0, 0, 0})
	service := newContextService(t, &stubProvider{}, index, convStore)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "anything")

	// Recall still works without the transcript.
	require.NotNil(t, memoryContext)
	require.Len(t, memoryContext.Messages, 1)
	assert.Equal(t, "past-hit", memoryContext.Messages[0].ID)
}

func TestEnhancedConversationContextWithoutConversationStore(t *testing.T) {
	index := newFakeIndex()
	index.seed("past-hit", "alice", "earlier", []float64{1, 0, 0, 0})
	service := newContextService(t, &stubProvider{}, index, nil)

	memoryContext := service.EnhancedConversationContext(context.Background(),
		"current", "alice", "anything")

	require.NotNil(t, memoryContext)
	require.Len(t, memoryContext.Messages, 1)
}

func TestEnhancedConversationContextInvalidInput(t *testing.T) {
	service := newContextService(t, &stubProvider{}, newFakeIndex(), newFakeConvStore())

	memoryContext := service.EnhancedConversationContext(context.Background(), "", "alice", "hi")
	require.NotNil(t, memoryContext)
	assert.Empty(t, memoryContext.Messages)
	assert.Equal(t, memory.ToneNeutral, memoryContext.EmotionalTone)
	assert.Nil(t, memoryContext.UserPreferences)
}
