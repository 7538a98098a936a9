package expr

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoises Compile by the SHA-256 of the program text. The same
// constraint text appears across many queries of a batch, so each distinct
// program is parsed once. Syntax errors are cached as well.
type Cache struct {
	// entries stores compiled programs indexed by SHA256 hash of source.
	entries map[string]cacheEntry
	// mu provides thread-safe access to the entries map.
	mu sync.RWMutex
	// sf ensures a given program is compiled by one goroutine at a time.
	sf singleflight.Group
}

type cacheEntry struct {
	prog *Program
	err  error
}

// NewCache returns an empty program cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Compile returns the cached program for src, parsing it on first use.
func (c *Cache) Compile(src string) (*Program, error) {
	hash := SourceHash(src)
	if e, ok := c.get(hash); ok {
		return e.prog, e.err
	}

	v, _, _ := c.sf.Do(hash, func() (any, error) {
		// Check again inside singleflight to handle the race between the
		// first lookup and group execution.
		if e, ok := c.get(hash); ok {
			return e, nil
		}
		prog, err := Compile(src)
		e := cacheEntry{prog: prog, err: err}
		c.mu.Lock()
		c.entries[hash] = e
		c.mu.Unlock()
		return e, nil
	})
	e := v.(cacheEntry)
	return e.prog, e.err
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) get(hash string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[hash]
	return e, ok
}
