package server

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// queryCache memoizes structured query results. Keys carry the
// snapshot generation, so a handle swap strands the old entries and
// the LRU evicts them as fresh generations fill the cache. A nil
// cache is valid and caches nothing.
type queryCache struct {
	lru *lru.Cache[string, []string]
}

func newQueryCache(size int) *queryCache {
	if size <= 0 {
		return nil
	}
	cache, _ := lru.New[string, []string](size)
	return &queryCache{lru: cache}
}

// cacheKey folds the snapshot generation and the canonical query text
// into a fixed-length key.
func cacheKey(generation, query string) string {
	sum := sha256.Sum256([]byte(generation + "\x00" + query))
	return hex.EncodeToString(sum[:])
}

func (c *queryCache) get(key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *queryCache) add(key string, ids []string) {
	if c == nil {
		return
	}
	c.lru.Add(key, ids)
}
