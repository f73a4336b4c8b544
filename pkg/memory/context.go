package memory

import (
	"context"
	"sort"
	"strings"
)

// minDetailedMessageLength is the mean user-message length above which the
// user is considered to prefer detailed responses.
const minDetailedMessageLength = 100

// EnhancedConversationContext assembles the memory context for one chat
// turn: the current conversation's transcript plus relevant memories
// retrieved from the user's other conversations.
//
// Same-conversation messages carry relevance 1.0; cross-conversation
// memories carry their re-ranked retrieval score. The merged window is
// sorted by relevance descending, ties broken by most recent timestamp,
// and capped. Topics, tone and user preferences are aggregated from the
// messages that made the cut.
//
// Composition never fails the chat turn: any underlying failure degrades
// to a smaller (possibly empty) context.
func (s *Service) EnhancedConversationContext(ctx context.Context, conversationID, userID, currentMessage string, opts ...ContextOption) *MemoryContext {
	options := applyContextOptions(opts, s.contextTopK)

	memoryContext := &MemoryContext{
		ConversationID: conversationID,
		UserID:         userID,
		EmotionalTone:  ToneNeutral,
	}
	if conversationID == "" || userID == "" {
		return memoryContext
	}

	messages := s.transcriptMessages(ctx, conversationID)
	messages = append(messages, s.crossConversationMessages(ctx, conversationID, userID, currentMessage, options.TopK)...)

	sortContextMessages(messages)
	if len(messages) > options.TopK {
		messages = messages[:options.TopK]
	}

	memoryContext.Messages = messages
	s.aggregateContext(memoryContext)

	return memoryContext
}

// transcriptMessages loads the current conversation's transcript, mapping
// every turn to a full-relevance context message.
func (s *Service) transcriptMessages(ctx context.Context, conversationID string) []*ContextMessage {
	if s.convStore == nil {
		return nil
	}

	stored, err := s.convStore.GetMessages(ctx, conversationID)
	if err != nil {
		s.logger.Printf("context: transcript load failed for %s, degrading: %v", conversationID, err)
		return nil
	}

	messages := make([]*ContextMessage, 0, len(stored))
	for _, msg := range stored {
		messages = append(messages, &ContextMessage{
			ID:        msg.ID,
			Content:   msg.Content,
			Role:      Role(msg.Role),
			Timestamp: msg.Timestamp,
			Relevance: 1.0,
		})
	}
	return messages
}

// crossConversationMessages retrieves memories from the user's other
// conversations, excluding the one currently in progress.
func (s *Service) crossConversationMessages(ctx context.Context, conversationID, userID, currentMessage string, topK int) []*ContextMessage {
	if strings.TrimSpace(currentMessage) == "" {
		return nil
	}

	results := s.RetrieveRelevantMemories(ctx, currentMessage, userID, WithTopK(topK))

	messages := make([]*ContextMessage, 0, len(results))
	for _, result := range results {
		if result.ConversationID == conversationID {
			continue
		}
		messages = append(messages, &ContextMessage{
			ID:        result.ID,
			Content:   result.Content,
			Role:      result.Role,
			Timestamp: result.Timestamp,
			Relevance: result.Score,
		})
	}
	return messages
}

// aggregateContext derives topics and tone from the composed message
// window, applying the same batch rules the writer uses over the joined
// contents. Preferences describe the user, so they are computed over
// user-authored messages only; an empty window yields no preferences at
// all.
func (s *Service) aggregateContext(memoryContext *MemoryContext) {
	if len(memoryContext.Messages) == 0 {
		return
	}

	var (
		parts       []string
		userParts   []string
		userLengths []int
	)

	for _, msg := range memoryContext.Messages {
		parts = append(parts, msg.Content)
		if msg.Role == RoleUser {
			userParts = append(userParts, msg.Content)
			userLengths = append(userLengths, len(msg.Content))
		}
	}

	joined := strings.Join(parts, " ")
	userJoined := strings.Join(userParts, " ")

	memoryContext.KeyTopics = extractKeyTopics(joined)
	memoryContext.EmotionalTone = analyzeTone(joined)
	memoryContext.UserPreferences = &UserPreferences{
		PreferredTopics:    extractKeyTopics(userJoined),
		CommunicationStyle: communicationStyle(userLengths),
		EmotionalPattern:   analyzeTone(userJoined),
	}
}

// communicationStyle classifies the user as detailed when their mean
// message length exceeds the threshold, concise otherwise.
func communicationStyle(lengths []int) string {
	if len(lengths) == 0 {
		return "concise"
	}
	total := 0
	for _, n := range lengths {
		total += n
	}
	if float64(total)/float64(len(lengths)) > minDetailedMessageLength {
		return "detailed"
	}
	return "concise"
}

// sortContextMessages sorts by relevance descending, breaking ties by most
// recent timestamp.
func sortContextMessages(messages []*ContextMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Relevance != messages[j].Relevance {
			return messages[i].Relevance > messages[j].Relevance
		}
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
}
