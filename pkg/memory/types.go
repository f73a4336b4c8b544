// Package memory implements the conversational memory retrieval engine:
// persisting conversation turns into a vector index with derived metadata,
// retrieving and re-ranking semantically relevant history across
// conversations, and composing the per-turn context used to enrich prompt
// generation.
package memory

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message authored by the end user.
	RoleUser Role = "user"

	// RoleAssistant marks a message authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Tone is the three-way emotional classification of text.
type Tone string

const (
	// TonePositive indicates predominantly positive language.
	TonePositive Tone = "positive"

	// ToneNegative indicates predominantly negative language.
	ToneNegative Tone = "negative"

	// ToneNeutral indicates balanced or unclassified language.
	ToneNeutral Tone = "neutral"
)

// ConversationType classifies a conversation batch by its dominant subject.
type ConversationType string

const (
	TypeBibleStudy  ConversationType = "bible_study"
	TypeApologetics ConversationType = "apologetics"
	TypeSpiritual   ConversationType = "spiritual"
	TypeTheological ConversationType = "theological"
	TypePersonal    ConversationType = "personal"
	TypeGeneral     ConversationType = "general"
)

// Flow describes a message's position and role relative to its neighbors
// within the batch it was stored with.
type Flow string

const (
	FlowStart        Flow = "start"
	FlowEnd          Flow = "end"
	FlowQuestion     Flow = "question"
	FlowAnswer       Flow = "answer"
	FlowContinuation Flow = "continuation"
)

// Message is a single conversation turn handed to the memory writer.
type Message struct {
	// Content is the message text.
	Content string `json:"content"`

	// Role is the message author.
	Role Role `json:"role"`

	// Timestamp is when the message was created. Zero means "now" at
	// write time.
	Timestamp time.Time `json:"timestamp"`
}

// MemoryResult is a single retrieved memory, ranked by its enhanced score.
type MemoryResult struct {
	// ID is the stored record id.
	ID string `json:"id"`

	// Content is the original message text.
	Content string `json:"content"`

	// Role is the message author.
	Role Role `json:"role"`

	// ConversationID is the conversation the memory came from.
	ConversationID string `json:"conversation_id"`

	// Score is the similarity score after re-ranking, capped at 1.0.
	Score float64 `json:"score"`

	// Timestamp is when the memory was written.
	Timestamp time.Time `json:"timestamp"`

	// Metadata is the full stored metadata document.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ContextMessage is one entry in a composed MemoryContext, merged from the
// current transcript and cross-conversation recall.
type ContextMessage struct {
	// ID is the message or record id.
	ID string `json:"id"`

	// Content is the message text.
	Content string `json:"content"`

	// Role is the message author.
	Role Role `json:"role"`

	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`

	// Relevance is 1.0 for same-conversation messages and the re-ranked
	// similarity score for retrieved memories.
	Relevance float64 `json:"relevance"`
}

// UserPreferences summarizes a user's observed interaction style.
type UserPreferences struct {
	// PreferredTopics are the key topics drawn from user-authored messages.
	PreferredTopics []string `json:"preferred_topics"`

	// CommunicationStyle is "detailed" or "concise" based on the mean
	// length of user messages.
	CommunicationStyle string `json:"communication_style"`

	// EmotionalPattern is the tone over user-authored messages.
	EmotionalPattern Tone `json:"emotional_pattern"`
}

// MemoryContext is the per-turn context window composed for prompt
// injection. It is computed fresh on every chat turn and never persisted.
type MemoryContext struct {
	// ConversationID is the current conversation.
	ConversationID string `json:"conversation_id"`

	// UserID is the owner of the context.
	UserID string `json:"user_id"`

	// Messages is the merged, relevance-ordered context window.
	Messages []*ContextMessage `json:"messages"`

	// KeyTopics is the deduplicated topic set over the merged messages.
	KeyTopics []string `json:"key_topics"`

	// EmotionalTone is the aggregate tone over the merged messages.
	EmotionalTone Tone `json:"emotional_tone"`

	// UserPreferences summarizes the user's interaction style (nil when the
	// context is degraded or no user messages are present).
	UserPreferences *UserPreferences `json:"user_preferences,omitempty"`
}
