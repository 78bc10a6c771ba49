package ui

import (
	"hash/fnv"
	"strconv"
	"sync"
)

// RenderCache memoizes rendered text, e.g. glamour output of advice that is
// re-rendered on every log refresh. When full it starts over.
type RenderCache struct {
	mu      sync.Mutex
	entries map[uint64]string
	maxSize int
}

// NewRenderCache creates a cache holding at most maxSize entries.
func NewRenderCache(maxSize int) *RenderCache {
	return &RenderCache{
		entries: make(map[uint64]string),
		maxSize: max(maxSize, 1),
	}
}

// ComputeKey hashes the inputs that determine a rendering.
func ComputeKey(text string, width int, theme string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(theme))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(width)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum64()
}

// GetOrCompute returns the cached value for key or stores compute's result.
func (rc *RenderCache) GetOrCompute(key uint64, compute func() string) string {
	rc.mu.Lock()
	if v, ok := rc.entries[key]; ok {
		rc.mu.Unlock()
		return v
	}
	rc.mu.Unlock()

	v := compute()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.entries) >= rc.maxSize {
		rc.entries = make(map[uint64]string)
	}
	rc.entries[key] = v
	return v
}

// Len returns the number of cached entries.
func (rc *RenderCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}

// Clear empties the cache.
func (rc *RenderCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries = make(map[uint64]string)
}
