package llm

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// imageKeyPrefix is how many image bytes participate in the cache key.
// Matches the web client, which keyed on the first 50 characters of the
// image payload.
const imageKeyPrefix = 50

// CacheProvider is a decorator that memoizes responses in a bounded LRU,
// keyed by a stable hash of the prompt plus an image prefix. It exists to
// avoid duplicate network calls within one process; it is a lookup
// optimization, not a correctness invariant, so errors are never cached.
type CacheProvider struct {
	inner    Provider
	capacity int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type cacheEntry struct {
	key  string
	resp Response
}

// WithCache wraps a Provider with a bounded response cache. A capacity of
// zero or less returns the provider unwrapped.
func WithCache(p Provider, capacity int) Provider {
	if capacity <= 0 {
		return p
	}
	return &CacheProvider{
		inner:    p,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *CacheProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	key := cacheKey(req)

	if resp, ok := c.lookup(key); ok {
		return resp, nil
	}

	resp, err := c.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	c.put(key, *resp)
	return resp, nil
}

func (c *CacheProvider) ModelID() string {
	return c.inner.ModelID()
}

// Len returns the number of cached responses.
func (c *CacheProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *CacheProvider) lookup(key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	resp := el.Value.(*cacheEntry).resp
	return &resp, true
}

func (c *CacheProvider) put(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).resp = resp
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, resp: resp})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// cacheKey hashes everything that shapes the response: system prompt,
// messages, schema name, and the leading image bytes.
func cacheKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.System))
	for _, m := range req.Messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	if req.Schema != nil {
		h.Write([]byte(req.Schema.Name))
	}
	if len(req.Image) > 0 {
		prefix := req.Image
		if len(prefix) > imageKeyPrefix {
			prefix = prefix[:imageKeyPrefix]
		}
		h.Write(prefix)
	}
	return hex.EncodeToString(h.Sum(nil))
}
