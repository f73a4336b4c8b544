package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Will-Langhart/shieldai-sub001/pkg/conversation"
	convsqlite "github.com/Will-Langhart/shieldai-sub001/pkg/conversation/sqlite"
	"github.com/Will-Langhart/shieldai-sub001/pkg/embedding"
	"github.com/Will-Langhart/shieldai-sub001/pkg/embedding/mock"
	embopenai "github.com/Will-Langhart/shieldai-sub001/pkg/embedding/openai"
	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore"
	vschromem "github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore/chromem"
	vsmysql "github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore/mysql"
	vspostgres "github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore/postgres"
	vssqlite "github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore/sqlite"
)

// Service is the conversational memory engine.
//
// It owns three collaborators: an embedding adapter that turns text into
// index-width vectors, a vector index holding per-message memory records,
// and a conversation log the context composer reads transcripts from.
//
// The chat path is failure-tolerant: StoreConversationMemory drops writes
// it cannot complete and RetrieveRelevantMemories degrades to no results,
// both logging the cause. Administrative operations (deletes, stats) do
// propagate errors.
type Service struct {
	embedder  *embedding.Adapter
	index     vectorstore.Index
	convStore conversation.Store
	logger    *log.Logger

	topK        int
	minScore    float64
	contextTopK int
}

// NewService creates a memory Service from the given configuration.
//
// Construction fails loudly on invalid configuration, unknown providers,
// and embedder/index dimension pairings that cannot be adapted.
func NewService(config *Config) (*Service, error) {
	if config == nil {
		return nil, NewMemoryError("NewService", fmt.Errorf("nil config: %w", ErrInvalidConfig))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	provider, err := initEmbeddingProvider(config)
	if err != nil {
		return nil, NewMemoryError("NewService", err)
	}

	adapter, err := embedding.NewAdapter(provider, config.IndexDimensions())
	if err != nil {
		_ = provider.Close()
		return nil, NewMemoryError("NewService", err)
	}

	index, err := initIndex(config)
	if err != nil {
		_ = adapter.Close()
		return nil, NewMemoryError("NewService", err)
	}

	convStore, err := initConversationStore(config)
	if err != nil {
		_ = adapter.Close()
		_ = index.Close()
		return nil, NewMemoryError("NewService", err)
	}

	topK := config.Retrieval.TopK
	if topK <= 0 {
		topK = DefaultRetrieveTopK
	}
	minScore := config.Retrieval.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	contextTopK := config.Retrieval.ContextTopK
	if contextTopK <= 0 {
		contextTopK = DefaultContextTopK
	}

	return &Service{
		embedder:    adapter,
		index:       index,
		convStore:   convStore,
		logger:      log.New(log.Writer(), "[memory] ", log.LstdFlags),
		topK:        topK,
		minScore:    minScore,
		contextTopK: contextTopK,
	}, nil
}

// NewServiceWithComponents creates a Service from pre-built collaborators.
// Mainly useful for tests and callers that manage their own stores.
func NewServiceWithComponents(embedder *embedding.Adapter, index vectorstore.Index, convStore conversation.Store) (*Service, error) {
	if embedder == nil || index == nil {
		return nil, NewMemoryError("NewService", fmt.Errorf("nil component: %w", ErrInvalidConfig))
	}

	return &Service{
		embedder:    embedder,
		index:       index,
		convStore:   convStore,
		logger:      log.New(log.Writer(), "[memory] ", log.LstdFlags),
		topK:        DefaultRetrieveTopK,
		minScore:    DefaultMinScore,
		contextTopK: DefaultContextTopK,
	}, nil
}

func initEmbeddingProvider(config *Config) (embedding.Provider, error) {
	switch config.Embedder.Provider {
	case "openai":
		return embopenai.NewClient(&embopenai.Config{
			APIKey:     config.Embedder.APIKey,
			Model:      config.Embedder.Model,
			BaseURL:    config.Embedder.BaseURL,
			Dimensions: config.Embedder.Dimensions,
		})
	case "mock":
		dims := config.Embedder.Dimensions
		if dims <= 0 {
			dims = config.IndexDimensions()
		}
		return mock.New(dims), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: %w",
			config.Embedder.Provider, ErrInvalidConfig)
	}
}

func initIndex(config *Config) (vectorstore.Index, error) {
	cfg := config.VectorStore.Config
	dims := config.IndexDimensions()

	switch config.VectorStore.Provider {
	case "chromem":
		return vschromem.NewClient(&vschromem.Config{
			Path:           getStringConfig(cfg, "path", ""),
			CollectionName: getStringConfig(cfg, "table_name", "memories"),
			Dimensions:     dims,
		})
	case "sqlite":
		return vssqlite.NewClient(&vssqlite.Config{
			DBPath:     getStringConfig(cfg, "path", "./shieldai.db"),
			TableName:  getStringConfig(cfg, "table_name", "memories"),
			Dimensions: dims,
		})
	case "postgres":
		return vspostgres.NewClient(&vspostgres.Config{
			Host:       getStringConfig(cfg, "host", "localhost"),
			Port:       getIntConfig(cfg, "port", 5432),
			User:       getStringConfig(cfg, "user", "postgres"),
			Password:   getStringConfig(cfg, "password", ""),
			DBName:     getStringConfig(cfg, "db_name", "shieldai"),
			TableName:  getStringConfig(cfg, "table_name", "memories"),
			Dimensions: dims,
			SSLMode:    getStringConfig(cfg, "ssl_mode", "disable"),
		})
	case "mysql":
		return vsmysql.NewClient(&vsmysql.Config{
			Host:       getStringConfig(cfg, "host", "127.0.0.1"),
			Port:       getIntConfig(cfg, "port", 3306),
			User:       getStringConfig(cfg, "user", "root"),
			Password:   getStringConfig(cfg, "password", ""),
			DBName:     getStringConfig(cfg, "db_name", "shieldai"),
			TableName:  getStringConfig(cfg, "table_name", "memories"),
			Dimensions: dims,
		})
	default:
		return nil, fmt.Errorf("unsupported vector store provider %q: %w",
			config.VectorStore.Provider, ErrInvalidConfig)
	}
}

func initConversationStore(config *Config) (conversation.Store, error) {
	if config.Conversation.DBPath == "" {
		return nil, nil
	}

	store, err := convsqlite.NewStore(&convsqlite.Config{
		DBPath: config.Conversation.DBPath,
	})
	if err != nil {
		return nil, err
	}

	ttl, err := time.ParseDuration(config.Conversation.CacheTTL)
	if err != nil {
		ttl = 0
	}

	return conversation.NewCachedStore(store, &conversation.CacheConfig{
		MaxConversations: config.Conversation.CacheSize,
		TTL:              ttl,
	})
}

// StoreConversationMemory embeds and indexes every message of a
// conversation as an individual memory record.
//
// Record ids are derived from the conversation id and message index, so
// re-storing the same conversation overwrites in place instead of
// duplicating. Messages that fail to embed or upsert are logged and
// dropped; an error is returned only for invalid input.
func (s *Service) StoreConversationMemory(ctx context.Context, conversationID, userID string, messages []*Message, opts ...StoreOption) error {
	if conversationID == "" || userID == "" {
		return NewMemoryError("StoreConversationMemory",
			fmt.Errorf("conversation id and user id are required: %w", ErrInvalidInput))
	}
	if len(messages) == 0 {
		return nil
	}

	options := applyStoreOptions(opts)
	records := s.buildRecords(conversationID, userID, messages, options.ExtraMetadata)

	var wg sync.WaitGroup
	for _, record := range records {
		wg.Add(1)
		go func(rec *pendingRecord) {
			defer wg.Done()
			s.storeOne(ctx, rec)
		}(record)
	}
	wg.Wait()

	return nil
}

// pendingRecord pairs a message with its derived metadata before embedding.
type pendingRecord struct {
	id       string
	content  string
	metadata map[string]interface{}
}

func (s *Service) buildRecords(conversationID, userID string, messages []*Message, extra map[string]interface{}) []*pendingRecord {
	total := len(messages)
	records := make([]*pendingRecord, 0, total)

	// Conversation type, topics and tone describe the batch as a whole;
	// chunk and flow are per message.
	var parts []string
	for _, msg := range messages {
		if msg != nil && strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, msg.Content)
		}
	}
	batchText := strings.Join(parts, " ")
	conversationType := string(classifyConversationType(batchText))
	keyTopics := extractKeyTopics(batchText)
	tone := string(analyzeTone(batchText))

	var previousRole Role
	for i, msg := range messages {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			previousRole = ""
			continue
		}

		timestamp := msg.Timestamp
		if timestamp.IsZero() {
			timestamp = time.Now()
		}

		metadata := map[string]interface{}{
			"user_id":           userID,
			"conversation_id":   conversationID,
			"content":           msg.Content,
			"role":              string(msg.Role),
			"timestamp":         timestamp.Format(time.RFC3339),
			"message_index":     i,
			"total_messages":    total,
			"conversation_type": conversationType,
			"key_topics":        keyTopics,
			"emotional_tone":    tone,
			"semantic_chunk":    semanticChunk(msg.Content),
			"conversation_flow": string(conversationFlow(i, total, msg.Role, previousRole)),
		}
		for k, v := range extra {
			metadata[k] = v
		}

		records = append(records, &pendingRecord{
			id:       fmt.Sprintf("%s_%d", conversationID, i),
			content:  msg.Content,
			metadata: metadata,
		})
		previousRole = msg.Role
	}

	return records
}

func (s *Service) storeOne(ctx context.Context, rec *pendingRecord) {
	vector, err := s.embedder.Embed(ctx, rec.content)
	if err != nil {
		s.logger.Printf("store: embedding failed for %s, dropping: %v", rec.id, err)
		return
	}

	if err := s.index.Upsert(ctx, &vectorstore.Record{
		ID:       rec.id,
		Vector:   vector,
		Metadata: rec.metadata,
	}); err != nil {
		s.logger.Printf("store: upsert failed for %s, dropping: %v", rec.id, err)
	}
}

// RetrieveRelevantMemories returns the user's most relevant past memories
// for the query, ranked by enhanced score.
//
// Candidates are over-fetched at twice the requested depth, re-ranked with
// recency, question-affinity and chunk-overlap boosts, filtered by the
// admission threshold and capped. All failures degrade to an empty result.
func (s *Service) RetrieveRelevantMemories(ctx context.Context, query, userID string, opts ...RetrieveOption) []*MemoryResult {
	if userID == "" || strings.TrimSpace(query) == "" {
		return nil
	}

	options := applyRetrieveOptions(opts, s.topK, s.minScore)

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Printf("retrieve: embedding failed, returning no memories: %v", err)
		return nil
	}

	filter := vectorstore.Filter{"user_id": userID}
	if options.ConversationID != "" {
		filter["conversation_id"] = options.ConversationID
	}

	matches, err := s.index.Query(ctx, vector, &vectorstore.QueryOptions{
		TopK:            options.TopK * candidateMultiplier,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		s.logger.Printf("retrieve: query failed, returning no memories: %v", err)
		return nil
	}

	return s.rankMatches(matches, query, options)
}

func (s *Service) rankMatches(matches []*vectorstore.Match, query string, options *RetrieveOptions) []*MemoryResult {
	now := time.Now()
	results := make([]*MemoryResult, 0, len(matches))

	for _, match := range matches {
		// Admission is decided on raw similarity; boosts only reorder.
		if match.Score < options.MinScore {
			continue
		}
		score := enhanceScore(match.Score, match.Metadata, query, now)
		results = append(results, matchToResult(match, score))
	}

	sortResultsByScore(results)
	if len(results) > options.TopK {
		results = results[:options.TopK]
	}

	return results
}

func matchToResult(match *vectorstore.Match, score float64) *MemoryResult {
	result := &MemoryResult{
		ID:       match.ID,
		Score:    score,
		Metadata: match.Metadata,
	}

	if content, ok := match.Metadata["content"].(string); ok {
		result.Content = content
	}
	if role, ok := match.Metadata["role"].(string); ok {
		result.Role = Role(role)
	}
	if conversationID, ok := match.Metadata["conversation_id"].(string); ok {
		result.ConversationID = conversationID
	}
	if ts, ok := parseTimestamp(match.Metadata["timestamp"]); ok {
		result.Timestamp = ts
	}

	return result
}

// sortResultsByScore sorts descending by score, breaking ties by most
// recent timestamp.
func sortResultsByScore(results []*MemoryResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Timestamp.After(results[j].Timestamp)
	})
}

// DeleteConversationMemories removes every indexed memory of one
// conversation owned by the user. Unlike the chat path, deletion errors
// are returned to the caller.
func (s *Service) DeleteConversationMemories(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return NewMemoryError("DeleteConversationMemories",
			fmt.Errorf("conversation id and user id are required: %w", ErrInvalidInput))
	}

	err := s.index.DeleteByFilter(ctx, vectorstore.Filter{
		"user_id":         userID,
		"conversation_id": conversationID,
	})
	if err != nil {
		return NewMemoryError("DeleteConversationMemories", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	if s.convStore != nil {
		if err := s.convStore.DeleteConversation(ctx, conversationID); err != nil {
			return NewMemoryError("DeleteConversationMemories", err)
		}
	}

	return nil
}

// DeleteUserMemories removes every indexed memory belonging to the user.
func (s *Service) DeleteUserMemories(ctx context.Context, userID string) error {
	if userID == "" {
		return NewMemoryError("DeleteUserMemories",
			fmt.Errorf("user id is required: %w", ErrInvalidInput))
	}

	err := s.index.DeleteByFilter(ctx, vectorstore.Filter{"user_id": userID})
	if err != nil {
		return NewMemoryError("DeleteUserMemories", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	return nil
}

// Stats reports the index record count and configured dimension.
func (s *Service) Stats(ctx context.Context) (*vectorstore.Stats, error) {
	stats, err := s.index.DescribeStats(ctx)
	if err != nil {
		return nil, NewMemoryError("Stats", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}
	return stats, nil
}

// ConversationStore exposes the underlying conversation log, or nil when
// the service was built without one.
func (s *Service) ConversationStore() conversation.Store {
	return s.convStore
}

// Close closes the service and all underlying resources.
func (s *Service) Close() error {
	var firstErr error

	if err := s.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if s.convStore != nil {
		if err := s.convStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return NewMemoryError("Close", firstErr)
	}
	return nil
}

func getStringConfig(config map[string]interface{}, key, defaultValue string) string {
	if value, ok := config[key].(string); ok && value != "" {
		return value
	}
	return defaultValue
}

func getIntConfig(config map[string]interface{}, key string, defaultValue int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}
