package conversation

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedStore decorates a Store with a bounded, evictable transcript cache.
//
// Transcripts are re-read on every chat turn to build the prompt context, so
// hot conversations are cached with a TTL instead of kept in a process-global
// map. Appends and deletes invalidate the cached transcript.
type CachedStore struct {
	store Store
	cache *ristretto.Cache
	ttl   time.Duration
}

// CacheConfig controls the transcript cache bounds.
type CacheConfig struct {
	// MaxConversations is the maximum number of cached transcripts
	// (default: 1024, floored at 128).
	MaxConversations int64

	// TTL is how long a cached transcript stays valid (default: 5m).
	TTL time.Duration
}

// minCacheCapacity floors the ristretto sizing: its TinyLFU admission
// policy rejects nearly every set when MaxCost is very small, so tighter
// configured bounds would produce a cache that never caches.
const minCacheCapacity = 128

// NewCachedStore wraps a Store with a ristretto-backed transcript cache.
func NewCachedStore(store Store, cfg *CacheConfig) (*CachedStore, error) {
	if cfg == nil {
		cfg = &CacheConfig{}
	}
	maxConversations := cfg.MaxConversations
	if maxConversations <= 0 {
		maxConversations = 1024
	} else if maxConversations < minCacheCapacity {
		maxConversations = minCacheCapacity
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxConversations * 10,
		MaxCost:     maxConversations,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &CachedStore{
		store: store,
		cache: cache,
		ttl:   ttl,
	}, nil
}

// AppendMessage appends through to the store and invalidates the cached
// transcript for that conversation.
func (c *CachedStore) AppendMessage(ctx context.Context, message *StoredMessage) error {
	if err := c.store.AppendMessage(ctx, message); err != nil {
		return err
	}
	c.cache.Del(message.ConversationID)
	return nil
}

// GetMessages returns the cached transcript when present, otherwise reads
// through and caches the result.
func (c *CachedStore) GetMessages(ctx context.Context, conversationID string) ([]*StoredMessage, error) {
	if cached, found := c.cache.Get(conversationID); found {
		if messages, ok := cached.([]*StoredMessage); ok {
			return messages, nil
		}
	}

	messages, err := c.store.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	c.cache.SetWithTTL(conversationID, messages, 1, c.ttl)
	return messages, nil
}

// DeleteConversation deletes through to the store and drops the cached
// transcript.
func (c *CachedStore) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := c.store.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}
	c.cache.Del(conversationID)
	return nil
}

// Wait blocks until pending cache writes are applied. Intended for tests.
func (c *CachedStore) Wait() {
	c.cache.Wait()
}

// Close closes the cache and the underlying store.
func (c *CachedStore) Close() error {
	c.cache.Close()
	return c.store.Close()
}
