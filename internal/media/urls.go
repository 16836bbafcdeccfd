package media

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/cache"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// URLPrefix starts every object URL.
const URLPrefix = "blob:trello-player/"

// URLRegistry maps object URLs to blobs until they are revoked.
type URLRegistry struct {
	mu    sync.RWMutex
	blobs map[string]cache.Blob
}

// NewURLRegistry creates an empty registry.
func NewURLRegistry() *URLRegistry {
	return &URLRegistry{blobs: make(map[string]cache.Blob)}
}

// Create registers blob under a new URL.
func (r *URLRegistry) Create(blob cache.Blob) string {
	url := URLPrefix + uuid.NewString()
	r.mu.Lock()
	r.blobs[url] = blob
	r.mu.Unlock()
	log.Debug("Object URL created", "url", url, "size", humanize.Bytes(uint64(blob.Size())))
	return url
}

// Revoke releases url. Unknown URLs are ignored.
func (r *URLRegistry) Revoke(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blobs[url]; ok {
		delete(r.blobs, url)
		log.Debug("Object URL revoked", "url", url)
	}
}

// Lookup returns the blob behind url.
func (r *URLRegistry) Lookup(url string) (cache.Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[url]
	return b, ok
}

// Live returns the number of unrevoked URLs.
func (r *URLRegistry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
