package cache

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shelfdesk/lms-client/internal/logger"
)

// KV is the persistent key/value store a store cache writes through to
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(keys ...string) error
	Keys() ([]string, error)
}

type storedEntry[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// storeCache keeps JSON encoded entries under a key prefix so cached data
// outlives the process
type storeCache[V any] struct {
	kv     KV
	prefix string
	now    func() time.Time
	log    *logger.Logger
}

// NewStoreCache creates a cache persisted in kv. Every key is stored as
// prefix+key. Store failures are logged and treated as misses.
func NewStoreCache[V any](kv KV, prefix string, log *logger.Logger) Cache[string, V] {
	if log == nil {
		log = logger.Get()
	}
	return &storeCache[V]{
		kv:     kv,
		prefix: prefix,
		now:    time.Now,
		log:    log.Component("cache"),
	}
}

func (c *storeCache[V]) Set(key string, value V, ttl time.Duration) {
	e := storedEntry[V]{Value: value}
	if ttl > 0 {
		e.ExpiresAt = c.now().Add(ttl)
	}

	data, err := json.Marshal(e)
	if err != nil {
		c.log.Warn("Failed to encode cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}
	if err := c.kv.Set(c.prefix+key, string(data)); err != nil {
		c.log.Warn("Failed to store cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	c.log.Debug("Item added to cache", map[string]interface{}{"key": key})
}

func (c *storeCache[V]) Get(key string) (V, bool) {
	var zero V

	raw, ok, err := c.kv.Get(c.prefix + key)
	if err != nil {
		c.log.Warn("Failed to read cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var e storedEntry[V]
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.log.Warn("Dropping unreadable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		c.Delete(key)
		return zero, false
	}

	if !e.ExpiresAt.IsZero() && c.now().After(e.ExpiresAt) {
		c.Delete(key)
		c.log.Debug("Cache item expired", map[string]interface{}{"key": key})
		return zero, false
	}
	return e.Value, true
}

func (c *storeCache[V]) Delete(key string) {
	if err := c.kv.Delete(c.prefix + key); err != nil {
		c.log.Warn("Failed to delete cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (c *storeCache[V]) Clear() {
	keys := c.keys()
	if len(keys) == 0 {
		return
	}
	if err := c.kv.Delete(keys...); err != nil {
		c.log.Warn("Failed to clear cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *storeCache[V]) Len() int {
	return len(c.keys())
}

func (c *storeCache[V]) keys() []string {
	all, err := c.kv.Keys()
	if err != nil {
		c.log.Warn("Failed to list cache entries", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, c.prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}
