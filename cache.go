package clsort

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache memoises a Canonicalizer. Entries live in memory and, when a BlobStore is
// attached, on disk under a namespace that identifies the ordering rules.
type Cache struct {
	next      Canonicalizer
	store     *BlobStore
	namespace string
	logger    *zap.Logger

	mu     sync.RWMutex
	mem    map[string][]string
	group  singleflight.Group
	hits   int
	misses int
}

func NewCache(next Canonicalizer, store *BlobStore, namespace string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		next:      next,
		store:     store,
		namespace: namespace,
		logger:    logger,
		mem:       make(map[string][]string),
	}
}

// CacheNamespace derives a namespace from the oracle version and the stylesheet that
// drives the ordering, so editing either invalidates older entries.
func CacheNamespace(version, stylesheet string) string {
	h := sha256.New()
	h.Write([]byte(version))
	h.Write([]byte{0})
	if content, err := os.ReadFile(stylesheet); err == nil {
		h.Write(content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) key(classes []string) string {
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(classes, " ")))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Canonicalize(ctx context.Context, classes []string) ([]string, error) {
	key := c.key(classes)

	c.mu.RLock()
	got, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		c.count(true)
		return slices.Clone(got), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if got, ok := c.load(key); ok {
			c.count(true)
			return got, nil
		}

		c.count(false)
		ordered, err := c.next.Canonicalize(ctx, classes)
		if err != nil {
			return nil, err
		}
		c.save(key, ordered)
		return ordered, nil
	})
	if err != nil {
		return nil, err
	}

	ordered := v.([]string)
	c.mu.Lock()
	c.mem[key] = ordered
	c.mu.Unlock()
	return slices.Clone(ordered), nil
}

func (c *Cache) load(key string) ([]string, bool) {
	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return strings.Fields(string(data)), true
}

func (c *Cache) save(key string, ordered []string) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(key, []byte(strings.Join(ordered, " "))); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
