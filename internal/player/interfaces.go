package player

import (
	"context"

	"github.com/dgnsrekt/trello-player/internal/abloop"
	"github.com/dgnsrekt/trello-player/internal/attachment"
	"github.com/dgnsrekt/trello-player/internal/cache"
	"github.com/dgnsrekt/trello-player/internal/pitch"
)

// Media is the element audio is played through. Implementations report
// what happens to them as events rather than through callbacks.
type Media interface {
	abloop.Media
	Pause() error
	// SetSource loads url. An empty url unloads the element.
	SetSource(url string) error
	// Duration returns the loaded source's duration in seconds, or NaN.
	Duration() float64
}

// URLRegistry hands out object URLs for fetched blobs.
type URLRegistry interface {
	Create(blob cache.Blob) string
	Revoke(url string)
}

// Resolver resolves attachments to blobs. *cache.BlobCache implements it.
type Resolver interface {
	Resolve(ctx context.Context, a attachment.Attachment, preserve ...string) (cache.Blob, error)
	Prefetch(list []attachment.Attachment, index int)
	Clear()
}

// Preferences loads and saves per-attachment pitch. storage.Preferences
// implements it.
type Preferences interface {
	pitch.PreferenceSaver
	LoadPitch(ctx context.Context, a attachment.Attachment) (semitones float64, ok bool)
}
