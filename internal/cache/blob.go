package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/attachment"
	"github.com/dustin/go-humanize"
)

// DefaultLimit is the number of attachments kept resident.
const DefaultLimit = 6

// DefaultFetchTimeout bounds a single blob download.
const DefaultFetchTimeout = 2 * time.Minute

// BlobCache maps attachment ids to in-flight or finished blob downloads.
// At most one download runs per id; callers asking for an id that is
// already being fetched wait on the same entry.
type BlobCache struct {
	fetcher Fetcher
	limit   int
	timeout time.Duration

	// insertion order, oldest at the front
	items map[string]*list.Element
	order *list.List

	// fetches outlive the callers that started them
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	stats Stats
}

// blobEntry is one download. done is closed once blob/err are final.
type blobEntry struct {
	id   string
	done chan struct{}
	blob Blob
	err  error
}

// Option configures a BlobCache.
type Option func(*BlobCache)

// WithLimit sets the resident entry limit.
func WithLimit(n int) Option {
	return func(c *BlobCache) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithFetchTimeout sets the per-download timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *BlobCache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewBlobCache creates a cache downloading through fetcher.
func NewBlobCache(fetcher Fetcher, opts ...Option) *BlobCache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &BlobCache{
		fetcher: fetcher,
		limit:   DefaultLimit,
		timeout: DefaultFetchTimeout,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.Limit = c.limit
	return c
}

// Resolve returns the blob for a, downloading it if no entry exists.
// preserve names ids that must survive the trim triggered by inserting a.
// ctx bounds only the wait: an abandoned download keeps running and its
// result stays cached.
func (c *BlobCache) Resolve(ctx context.Context, a attachment.Attachment, preserve ...string) (Blob, error) {
	if a.ID == "" {
		return Blob{}, ErrInvalidAttachment
	}
	e := c.entry(a, preserve)

	select {
	case <-e.done:
		return e.blob, e.err
	case <-ctx.Done():
		return Blob{}, ctx.Err()
	}
}

// Prefetch starts downloads for the attachments adjacent to index without
// waiting. Failures are logged and dropped.
func (c *BlobCache) Prefetch(list []attachment.Attachment, index int) {
	preserve := attachment.Neighbors(list, index)
	for _, i := range []int{index + 1, index - 1} {
		if i < 0 || i >= len(list) {
			continue
		}
		e := c.entry(list[i], preserve)
		go func(e *blobEntry) {
			<-e.done
			if e.err != nil {
				log.Debug("Prefetch failed", "attachment", e.id, "err", e.err)
			}
		}(e)
	}
}

// entry returns the existing entry for a or inserts a new one and starts
// its download.
func (c *BlobCache) entry(a attachment.Attachment, preserve []string) *blobEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[a.ID]; ok {
		c.stats.Hits++
		return elem.Value.(*blobEntry)
	}

	c.stats.Misses++
	e := &blobEntry{id: a.ID, done: make(chan struct{})}
	c.items[a.ID] = c.order.PushBack(e)
	c.trim(append([]string{a.ID}, preserve...))

	go c.download(e, a.URL)
	return e
}

func (c *BlobCache) download(e *blobEntry, url string) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	start := time.Now()
	blob, err := c.fetcher.Fetch(ctx, url)

	c.mu.Lock()
	e.blob, e.err = blob, err
	if err != nil {
		c.stats.Failures++
		// a newer entry for the same id may have replaced this one
		if elem, ok := c.items[e.id]; ok && elem.Value.(*blobEntry) == e {
			c.order.Remove(elem)
			delete(c.items, e.id)
		}
	}
	c.mu.Unlock()
	close(e.done)

	if err != nil {
		log.Warn("Attachment download failed", "attachment", e.id, "err", err)
		return
	}
	log.Debug("Attachment downloaded",
		"attachment", e.id,
		"size", humanize.Bytes(uint64(len(blob.Data))), //nolint:gosec
		"took", time.Since(start).Round(time.Millisecond))
}

// trim evicts the oldest entries until the cache fits its limit, skipping
// ids in preserve. Must be called with the lock held.
func (c *BlobCache) trim(preserve []string) {
	if c.order.Len() <= c.limit {
		return
	}
	keep := make(map[string]struct{}, len(preserve))
	for _, id := range preserve {
		if id != "" {
			keep[id] = struct{}{}
		}
	}

	for elem := c.order.Front(); elem != nil && c.order.Len() > c.limit; {
		next := elem.Next()
		e := elem.Value.(*blobEntry)
		if _, ok := keep[e.id]; !ok {
			c.order.Remove(elem)
			delete(c.items, e.id)
			c.stats.Evictions++
		}
		elem = next
	}
}

// Contains reports whether id has an entry, in flight or resolved.
func (c *BlobCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

// Len returns the number of entries.
func (c *BlobCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the cached ids in insertion order.
func (c *BlobCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*blobEntry).id)
	}
	return keys
}

// Clear drops every entry. Downloads in flight finish but are not kept.
func (c *BlobCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns cache counters.
func (c *BlobCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Entries = c.order.Len()
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// Close cancels downloads still in flight.
func (c *BlobCache) Close() error {
	c.cancel()
	return nil
}
