package player

import (
	"github.com/dgnsrekt/trello-player/internal/abloop"
	"github.com/dgnsrekt/trello-player/internal/attachment"
)

// Session is the playback session owned by the player.
type Session struct {
	CurrentIndex int
	LoadToken    uint64 // bumped by every load; older loads are stale
	Loaded       bool
}

// Options control a single attachment load.
type Options struct {
	Autoplay    bool
	ScrollToTop bool
}

// DefaultOptions autoplays without scrolling.
func DefaultOptions() Options {
	return Options{Autoplay: true}
}

// Snapshot is everything a UI needs to render the player.
type Snapshot struct {
	Attachments []attachment.Attachment
	Index       int
	Loaded      bool
	Loading     bool
	Playing     bool
	ScrollToTop bool

	Position float64 // seconds
	Duration float64 // seconds, NaN when unknown
	Pitch    float64
	Tempo    float64

	Loop       abloop.Button
	LoopRegion abloop.Region
	Status     string

	Durations map[string]float64 // attachment id to seconds
}

// Current returns the selected attachment.
func (s Snapshot) Current() (attachment.Attachment, bool) {
	if s.Index < 0 || s.Index >= len(s.Attachments) {
		return attachment.Attachment{}, false
	}
	return s.Attachments[s.Index], true
}
