package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync"
)

// EmbeddingProvider computes a vector embedding for arbitrary text (§4.5
// step 2 "semantic"). Concrete providers are out of scope (§1); callers
// inject whichever embedding backend their deployment uses.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// embeddingCache memoizes EmbeddingProvider.Embed results by content hash
// (§4.5: "cached by content hash"). No LRU/cache library is grounded
// anywhere in the retrieved corpus for this concern, so the cache is a
// plain mutex-guarded map with FIFO eviction once maxEntries is reached,
// the same shape the corpus uses for its other small in-memory indexes
// (e.g. the registry snapshot's ToolsByName map).
type embeddingCache struct {
	mu         sync.Mutex
	entries    map[string][]float64
	order      []string
	maxEntries int
}

func newEmbeddingCache(maxEntries int) *embeddingCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &embeddingCache{
		entries:    make(map[string][]float64),
		maxEntries: maxEntries,
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *embeddingCache) get(text string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[hashText(text)]
	return v, ok
}

func (c *embeddingCache) put(text string, vec []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := hashText(text)
	if _, exists := c.entries[key]; exists {
		c.entries[key] = vec
		return
	}
	if len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = vec
	c.order = append(c.order, key)
}

// cachedEmbed wraps an EmbeddingProvider with the content-hash cache.
type cachedEmbed struct {
	provider EmbeddingProvider
	cache    *embeddingCache
}

func newCachedEmbed(provider EmbeddingProvider, maxEntries int) *cachedEmbed {
	return &cachedEmbed{provider: provider, cache: newEmbeddingCache(maxEntries)}
}

func (c *cachedEmbed) embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cache.get(text); ok {
		return v, nil
	}
	v, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.put(text, v)
	return v, nil
}

// cosineSimilarity reports the cosine similarity of two vectors, 0 if
// either is the zero vector or the lengths differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
