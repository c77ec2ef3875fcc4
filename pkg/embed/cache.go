package embed

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedEmbedder keeps recent query vectors in memory. Keys are the model id
// plus the normalised text, so a hit returns what the backend would.
type CachedEmbedder struct {
	inner Embedder
	cache *gocache.Cache
}

// NewCached wraps inner with an expiring cache.
func NewCached(inner Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// ModelID returns the wrapped model id.
func (c *CachedEmbedder) ModelID() string {
	return c.inner.ModelID()
}

// EmbedTexts serves hits from the cache and sends only misses to the backend.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []int
	for i, t := range texts {
		keys[i] = c.inner.ModelID() + "|" + Normalize(t)
		if v, ok := c.cache.Get(keys[i]); ok {
			out[i] = cloneVector(v.([]float32))
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := c.inner.EmbedTexts(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
	}
	for j, i := range missing {
		c.cache.SetDefault(keys[i], cloneVector(vecs[j]))
		out[i] = vecs[j]
	}
	return out, nil
}

// Len reports the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.ItemCount()
}

// Close flushes the cache and closes the backend.
func (c *CachedEmbedder) Close() error {
	c.cache.Flush()
	return c.inner.Close()
}
