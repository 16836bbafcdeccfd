package cache

import (
	"errors"
	"fmt"
)

// Common errors for cache operations
var (
	// ErrInvalidAttachment is returned when an attachment has no id.
	ErrInvalidAttachment = errors.New("unable to resolve attachment blob")

	// ErrMissingToken is returned when no member token is available for
	// the proxy request.
	ErrMissingToken = errors.New("missing trello token")
)

// Blob is downloaded attachment content.
type Blob struct {
	Data        []byte
	ContentType string
}

// Size returns the blob length in bytes.
func (b Blob) Size() int {
	return len(b.Data)
}

// FetchError reports a non-2xx proxy response.
type FetchError struct {
	URL    string
	Status int
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("proxy request failed with status %d", e.Status)
}

// Stats holds cache counters.
type Stats struct {
	Limit     int // Maximum resident entries
	Entries   int // Current entries, in flight or resolved
	Hits      int64
	Misses    int64
	Evictions int64
	Failures  int64   // Downloads that failed and were dropped
	HitRate   float64 // hits / (hits + misses)
}
