package abloop

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/event"
)

// ErrDurationUnavailable is returned when B must fall back to the track
// duration but none is known yet.
var ErrDurationUnavailable = errors.New("track duration is not available yet")

// Controller owns the loop region for the current track.
type Controller struct {
	media    Media
	view     RegionView
	duration DurationSource

	region   Region
	clearing atomic.Bool // set while the controller clears the view itself
}

// New creates a loop controller. view and duration may be nil.
func New(media Media, view RegionView, duration DurationSource) *Controller {
	return &Controller{media: media, view: view, duration: duration}
}

// Bind forwards region edits from the view to emit as events. Removals
// caused by the controller clearing the view are dropped. Bind does
// nothing when the view cannot be edited.
func (c *Controller) Bind(emit func(event.Event)) {
	n, ok := c.view.(RegionNotifier)
	if !ok {
		return
	}
	n.OnRegionUpdate(func(a, b *float64) {
		emit(event.RegionUpdate{A: copyPoint(a), B: copyPoint(b)})
	})
	n.OnRegionRemoved(func() {
		if c.clearing.Load() {
			return
		}
		emit(event.RegionRemoved{})
	})
}

// State returns the current state.
func (c *Controller) State() State {
	return c.region.State()
}

// Region returns a copy of the loop points.
func (c *Controller) Region() Region {
	return Region{A: copyPoint(c.region.A), B: copyPoint(c.region.B)}
}

// Loop returns the loop bounds when the loop is active.
func (c *Controller) Loop() (a, b float64, ok bool) {
	if c.region.State() != StateActive {
		return 0, 0, false
	}
	return *c.region.A, *c.region.B, true
}

// Button projects the state onto the loop button.
func (c *Controller) Button(loaded bool) Button {
	return ButtonFor(c.State(), loaded)
}

// Capture presses the loop button: set A, then B, then clear.
func (c *Controller) Capture(ctx context.Context) error {
	switch c.State() {
	case StateActive:
		c.Reset()
		return nil

	case StateEmpty:
		a := 0.0
		if c.playing() {
			a = c.media.CurrentTime()
		}
		c.region = Region{A: &a}
		c.syncView()
		log.Debug("Loop point A set", "a", a)
		return nil
	}

	a := *c.region.A
	duration := c.trackDuration()
	known := finitePositive(duration)

	var target float64
	if c.playing() {
		target = c.media.CurrentTime()
	} else {
		if !known {
			return ErrDurationUnavailable
		}
		target = duration
	}
	if known {
		target = math.Min(target, duration)
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		target = a + MinDuration
	}
	if target <= a+MinDuration {
		fallback := a + MinDuration
		if known {
			fallback = duration
		}
		target = math.Min(fallback, a+MinDuration)
	}
	if target <= a || !validGap(a, target) {
		log.Debug("Loop end too close to start", "a", a, "b", target)
		return nil
	}

	c.region.B = &target
	c.syncView()
	log.Debug("Loop activated", "a", a, "b", target)
	c.Enforce(ctx)
	return nil
}

// Reset clears both points and the view region.
func (c *Controller) Reset() {
	c.region = Region{}
	c.clearView()
}

// Enforce jumps back to A once playback reaches the guard band before B,
// resuming playback when it is paused but not ended.
func (c *Controller) Enforce(ctx context.Context) {
	a, b, ok := c.Loop()
	if !ok || c.media == nil {
		return
	}
	if c.media.CurrentTime() < b-GuardBand {
		return
	}
	if err := c.media.Seek(a); err != nil {
		log.Warn("Loop seek failed", "err", err)
		return
	}
	if c.media.Paused() && !c.media.Ended() {
		if err := c.media.Play(ctx); err != nil {
			log.Debug("Loop resume blocked", "err", err)
		}
	}
}

// Prime moves playback to A when it is about to start outside the loop.
func (c *Controller) Prime() {
	a, b, ok := c.Loop()
	if !ok || c.media == nil {
		return
	}
	if t := c.media.CurrentTime(); t < a || t >= b {
		if err := c.media.Seek(a); err != nil {
			log.Warn("Loop seek failed", "err", err)
		}
	}
}

// UpdateRegion applies points edited in the view. A pair that cannot
// form a loop is ignored and the view is redrawn from the current loop.
func (c *Controller) UpdateRegion(ctx context.Context, a, b *float64) {
	switch {
	case a == nil && b == nil:
		c.region = Region{}
	case a != nil && b == nil:
		c.region = Region{A: copyPoint(a)}
	case a != nil && b != nil && *b > *a && validGap(*a, *b):
		c.region = Region{A: copyPoint(a), B: copyPoint(b)}
		c.syncView()
		c.Enforce(ctx)
	default:
		log.Debug("Ignoring invalid loop region")
		c.syncView()
	}
}

// RemoveRegion handles the view removing the region. It is ignored while
// the controller is clearing the view itself.
func (c *Controller) RemoveRegion() {
	if c.clearing.Load() {
		return
	}
	c.region = Region{}
}

// Dispatch routes loop-related events. It reports whether ev was handled.
func (c *Controller) Dispatch(ctx context.Context, ev event.Event) (bool, error) {
	switch e := ev.(type) {
	case event.TimeUpdate:
		c.Enforce(ctx)
	case event.Play:
		c.Prime()
	case event.RegionUpdate:
		c.UpdateRegion(ctx, e.A, e.B)
	case event.RegionRemoved:
		c.RemoveRegion()
	case event.ToggleLoop:
		return true, c.Capture(ctx)
	default:
		return false, nil
	}
	return true, nil
}

func (c *Controller) playing() bool {
	return c.media != nil && !c.media.Paused() && !c.media.Ended()
}

func (c *Controller) trackDuration() float64 {
	if c.duration == nil {
		return math.NaN()
	}
	return c.duration.TrackDuration()
}

// syncView draws the active loop or clears the view otherwise.
func (c *Controller) syncView() {
	if c.view == nil {
		return
	}
	if a, b, ok := c.Loop(); ok {
		c.view.SetLoopRegion(a, b)
		return
	}
	c.clearView()
}

func (c *Controller) clearView() {
	if c.view == nil {
		return
	}
	c.clearing.Store(true)
	defer c.clearing.Store(false)
	c.view.ClearLoopRegion()
}

func copyPoint(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
