package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

const defaultMemoryEntries = 10000

// MemoryClient keeps descriptions for the life of one process. When full it
// drops the least recently read entry, so icons repeated on every page stay.
type MemoryClient struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front is most recently used
	limit   int
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryClient creates a cache holding at most maxEntries descriptions.
func NewMemoryClient(maxEntries int) *MemoryClient {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryEntries
	}

	c := &MemoryClient{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		limit:   maxEntries,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.sweep(time.Minute)
	return c
}

// Get returns the stored value and marks it recently used.
func (c *MemoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	e := el.Value.(*memoryEntry)
	if e.expired(c.now()) {
		c.remove(el)
		return nil, ErrCacheMiss
	}
	c.lru.MoveToFront(el)
	return e.value, nil
}

// Set stores a copy of value until ttl elapses. A zero ttl never expires,
// as with Redis.
func (c *MemoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := append([]byte(nil), value...)
	var expiresAt time.Time
	if ttl != 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value, e.expiresAt = stored, expiresAt
		c.lru.MoveToFront(el)
		return nil
	}

	for c.lru.Len() >= c.limit {
		c.remove(c.lru.Back())
	}
	c.entries[key] = c.lru.PushFront(&memoryEntry{key: key, value: stored, expiresAt: expiresAt})
	return nil
}

// Delete removes one key.
func (c *MemoryClient) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (c *MemoryClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.remove(el)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close stops the background sweep.
func (c *MemoryClient) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryClient) remove(el *list.Element) {
	c.lru.Remove(el)
	delete(c.entries, el.Value.(*memoryEntry).key)
}

func (c *MemoryClient) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired(c.now())
		}
	}
}

func (c *MemoryClient) removeExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*memoryEntry).expired(now) {
			c.remove(el)
		}
		el = prev
	}
}
