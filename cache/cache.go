package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"photoindex/logging"
	"photoindex/types"
)

// Cache is a durable identity-keyed result store. Values live in memory
// during a run and are flushed wholesale to a JSON file; there is no
// incremental append format. Entries are keyed by identity, not by
// content fingerprint: re-ingesting a changed file under an unchanged
// name returns the stale cached value until the cache is cleared. That
// is the documented contract, not an accident.
type Cache[V any] struct {
	path    string
	mu      sync.Mutex
	entries map[string]V
}

// New constructs a cache and attempts to load its backing file. A
// missing or corrupt file is non-fatal: the event is logged and the
// cache starts empty.
func New[V any](path string) *Cache[V] {
	c := &Cache[V]{
		path:    path,
		entries: make(map[string]V),
	}
	c.load()
	return c
}

// Path returns the location of the backing store.
func (c *Cache[V]) Path() string { return c.path }

func (c *Cache[V]) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.LogWarning("cannot load cache %s, starting empty: %v", c.path, err)
		}
		return
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		logging.LogWarning("cache %s is corrupt, starting empty: %v", c.path, err)
		c.entries = make(map[string]V)
		return
	}
	logging.LogCacheEvent(c.path, "LOADED", fmt.Sprintf("%d entries", len(c.entries)))
}

// Get returns the cached value for an identity if present.
func (c *Cache[V]) Get(identity string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[identity]
	return v, ok
}

// GetOrCompute returns the cached value for identity, or invokes fn,
// stores the result and returns it. A cache hit never invokes fn. The
// result of a failed computation is not cached.
func (c *Cache[V]) GetOrCompute(identity string, fn func() (V, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.entries[identity]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := fn()
	if err != nil {
		var zero V
		return zero, err
	}

	// Last-write-wins if a concurrent caller computed the same identity.
	c.mu.Lock()
	c.entries[identity] = v
	c.mu.Unlock()
	return v, nil
}

// Store merge-updates the in-memory cache from a batch of new entries
// and persists the full merged cache. A persistence failure is returned
// as a CacheIOError but leaves the merged in-memory state correct.
func (c *Cache[V]) Store(batch map[string]V) error {
	c.mu.Lock()
	for k, v := range batch {
		c.entries[k] = v
	}
	c.mu.Unlock()
	return c.Flush()
}

// Flush persists the full in-memory cache to the backing store using a
// write-then-rename so a crash never leaves a truncated file behind.
func (c *Cache[V]) Flush() error {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	count := len(c.entries)
	c.mu.Unlock()
	if err != nil {
		return &types.CacheIOError{Path: c.path, Err: err}
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return &types.CacheIOError{Path: c.path, Err: err}
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &types.CacheIOError{Path: c.path, Err: err}
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return &types.CacheIOError{Path: c.path, Err: err}
	}

	logging.LogCacheEvent(c.path, "FLUSHED", fmt.Sprintf("%d entries", count))
	return nil
}

// Clear drops all in-memory entries. The backing store is untouched
// until the next flush.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns a copy of the cache contents.
func (c *Cache[V]) Snapshot() map[string]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]V, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Identities returns all cached keys in sorted order.
func (c *Cache[V]) Identities() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
