package ui

import (
	"sync"

	"github.com/dgnsrekt/trello-player/internal/abloop"
)

var (
	_ abloop.RegionView     = (*Region)(nil)
	_ abloop.RegionNotifier = (*Region)(nil)
)

// Region is the loop region drawn under the progress bar. The user can
// nudge or remove it from the keyboard.
type Region struct {
	mu       sync.Mutex
	a, b     float64
	limit    float64
	visible  bool
	onUpdate func(a, b *float64)
	onRemove func()
}

// NewRegion creates an empty region view.
func NewRegion() *Region {
	return &Region{}
}

// SetLoopRegion draws the region.
func (r *Region) SetLoopRegion(a, b float64) {
	r.mu.Lock()
	r.a, r.b, r.visible = a, b, true
	r.mu.Unlock()
}

// ClearLoopRegion removes the region and reports the removal.
func (r *Region) ClearLoopRegion() {
	r.remove()
}

// OnRegionUpdate registers the handler for user edits.
func (r *Region) OnRegionUpdate(fn func(a, b *float64)) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

// OnRegionRemoved registers the handler for removals.
func (r *Region) OnRegionRemoved(fn func()) {
	r.mu.Lock()
	r.onRemove = fn
	r.mu.Unlock()
}

// SetLimit sets the track duration the region is kept within. Zero or
// less means unknown.
func (r *Region) SetLimit(d float64) {
	r.mu.Lock()
	r.limit = d
	r.mu.Unlock()
}

// Bounds returns the drawn region.
func (r *Region) Bounds() (a, b float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.a, r.b, r.visible
}

// Shift moves the region by delta seconds, keeping its length within
// [0, limit]. The new bounds are drawn at once and reported to the update
// handler. It reports whether a region was drawn.
func (r *Region) Shift(delta float64) bool {
	r.mu.Lock()
	if !r.visible {
		r.mu.Unlock()
		return false
	}
	a, b := r.a+delta, r.b+delta
	if a < 0 {
		a, b = 0, b-a
	}
	if r.limit > 0 && b > r.limit {
		a, b = max(0, a-(b-r.limit)), r.limit
	}
	r.a, r.b = a, b
	fn := r.onUpdate
	r.mu.Unlock()

	if fn != nil {
		fn(&a, &b)
	}
	return true
}

// Remove deletes the region on behalf of the user.
func (r *Region) Remove() bool {
	return r.remove()
}

func (r *Region) remove() bool {
	r.mu.Lock()
	was := r.visible
	r.visible = false
	fn := r.onRemove
	r.mu.Unlock()

	if was && fn != nil {
		fn()
	}
	return was
}
