package memory

// Defaults applied when the corresponding option is not provided.
const (
	// DefaultRetrieveTopK is the default result cap for retrieval.
	DefaultRetrieveTopK = 10

	// DefaultMinScore is the default raw-similarity admission threshold.
	DefaultMinScore = 0.7

	// DefaultContextTopK is the default size of the composed context window.
	DefaultContextTopK = 15

	// candidateMultiplier oversamples the store query so re-ranking has
	// room to reorder before the cap is applied.
	candidateMultiplier = 2
)

// StoreOption configures StoreConversationMemory.
type StoreOption func(*StoreOptions)

// StoreOptions contains configuration for store operations.
type StoreOptions struct {
	// ExtraMetadata is merged into every written record's metadata.
	ExtraMetadata map[string]interface{}
}

// WithExtraMetadata attaches additional metadata to every record written by
// the call.
//
// Example:
//
//	err := svc.StoreConversationMemory(ctx, convID, userID, messages,
//	    memory.WithExtraMetadata(map[string]interface{}{"source": "web"}),
//	)
func WithExtraMetadata(metadata map[string]interface{}) StoreOption {
	return func(opts *StoreOptions) {
		opts.ExtraMetadata = metadata
	}
}

// RetrieveOption configures RetrieveRelevantMemories.
type RetrieveOption func(*RetrieveOptions)

// RetrieveOptions contains configuration for retrieval operations.
type RetrieveOptions struct {
	// ConversationID restricts retrieval to one conversation. Empty means
	// cross-conversation recall over all of the user's memories.
	ConversationID string

	// TopK caps the number of returned results.
	TopK int

	// MinScore is the raw-similarity admission threshold.
	MinScore float64
}

// WithConversationID restricts retrieval to a single conversation.
func WithConversationID(conversationID string) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.ConversationID = conversationID
	}
}

// WithTopK caps the number of retrieval results.
func WithTopK(topK int) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.TopK = topK
	}
}

// WithMinScore sets the raw-similarity admission threshold.
func WithMinScore(minScore float64) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.MinScore = minScore
	}
}

// ContextOption configures EnhancedConversationContext.
type ContextOption func(*ContextOptions)

// ContextOptions contains configuration for context composition.
type ContextOptions struct {
	// TopK caps the merged context window.
	TopK int
}

// WithContextTopK caps the composed context window.
func WithContextTopK(topK int) ContextOption {
	return func(opts *ContextOptions) {
		opts.TopK = topK
	}
}

func applyStoreOptions(opts []StoreOption) *StoreOptions {
	options := &StoreOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func applyRetrieveOptions(opts []RetrieveOption, defaultTopK int, defaultMinScore float64) *RetrieveOptions {
	options := &RetrieveOptions{
		TopK:     defaultTopK,
		MinScore: defaultMinScore,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.TopK <= 0 {
		options.TopK = DefaultRetrieveTopK
	}
	return options
}

func applyContextOptions(opts []ContextOption, defaultTopK int) *ContextOptions {
	options := &ContextOptions{
		TopK: defaultTopK,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.TopK <= 0 {
		options.TopK = DefaultContextTopK
	}
	return options
}
