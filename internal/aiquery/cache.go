// internal/aiquery/cache.go
package aiquery

import (
	"container/list"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pos-insights/internal/models"
)

// DefaultCacheTTL is how long a composed response stays reusable.
const DefaultCacheTTL = 15 * time.Minute

// ResponseCache stores composed responses keyed by tenant and query
// parameters. The cache has no notion of tenant itself; callers must
// always build keys through BuildCacheKey so org identity is part of
// every key.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*models.AIQueryResponse, bool)
	Set(ctx context.Context, key string, value *models.AIQueryResponse, ttl time.Duration)
	Clear(ctx context.Context)
}

// cacheKeyPayload is serialized to form the cache key. Struct field
// order keeps the serialization stable across calls.
type cacheKeyPayload struct {
	OrgID       string            `json:"orgId"`
	Query       string            `json:"q"`
	DateRange   *models.DateRange `json:"dateRange,omitempty"`
	LocationIDs []string          `json:"locationIds,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	OrderType   string            `json:"orderType,omitempty"`
}

// BuildCacheKey derives the tenant-scoped cache key for a request.
// Identical requests from different orgs always produce different keys;
// this is the tenant isolation boundary for the cache.
func BuildCacheKey(orgID string, req *models.AIQueryRequest) string {
	payload := cacheKeyPayload{
		OrgID:       orgID,
		Query:       normalizeQueryText(req.Query),
		DateRange:   req.DateRange,
		LocationIDs: req.LocationIDs,
		Channel:     req.Channel,
		OrderType:   req.OrderType,
	}
	data, _ := json.Marshal(payload)
	return "ai:resp:" + string(data)
}

// normalizeQueryText collapses surrounding whitespace so trivially
// different phrasings of the same question share a key.
func normalizeQueryText(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// ==========================
// In-memory implementation
// ==========================

type memoryEntry struct {
	key       string
	value     *models.AIQueryResponse
	expiresAt time.Time
}

// MemoryCache is a mutex-guarded map with LRU eviction at maxEntries
// and lazy TTL expiry on read. The clock is injected so expiry is
// testable without sleeps.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemoryCache creates a bounded in-memory response cache.
func NewMemoryCache(maxEntries int, defaultTTL time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultCacheTTL
	}
	return &MemoryCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// WithClock overrides the cache's time source. Test use only.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.AIQueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	if c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value *models.AIQueryResponse, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	c.entries[key] = elem

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len reports the current number of live entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// ==========================
// Redis implementation
// ==========================

// RedisCache shares composed responses across replicas. Expiry is
// delegated to Redis; any client error is treated as a miss so the
// pipeline degrades to regeneration rather than failing.
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

func NewRedisCache(client *redis.Client, defaultTTL time.Duration) *RedisCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultCacheTTL
	}
	return &RedisCache{client: client, defaultTTL: defaultTTL}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.AIQueryResponse, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var resp models.AIQueryResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value *models.AIQueryResponse, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, data, ttl)
}

func (c *RedisCache) Clear(ctx context.Context) {
	c.client.FlushDB(ctx)
}
