package abloop

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/dgnsrekt/trello-player/internal/event"
)

type fakeMedia struct {
	time   float64
	paused bool
	ended  bool
	seeks  []float64
	plays  int
}

func (m *fakeMedia) CurrentTime() float64 { return m.time }
func (m *fakeMedia) Paused() bool         { return m.paused }
func (m *fakeMedia) Ended() bool          { return m.ended }

func (m *fakeMedia) Seek(t float64) error {
	m.time = t
	m.seeks = append(m.seeks, t)
	return nil
}

func (m *fakeMedia) Play(context.Context) error {
	m.plays++
	m.paused = false
	return nil
}

// fakeView calls its removal handler synchronously from ClearLoopRegion,
// as waveform libraries do.
type fakeView struct {
	regions  [][2]float64
	clears   int
	onUpdate func(a, b *float64)
	onRemove func()
}

func (v *fakeView) SetLoopRegion(a, b float64) { v.regions = append(v.regions, [2]float64{a, b}) }

func (v *fakeView) ClearLoopRegion() {
	v.clears++
	if v.onRemove != nil {
		v.onRemove()
	}
}

func (v *fakeView) OnRegionUpdate(fn func(a, b *float64)) { v.onUpdate = fn }
func (v *fakeView) OnRegionRemoved(fn func())             { v.onRemove = fn }

func ptr(v float64) *float64 { return &v }

func duration(d float64) DurationSource {
	return DurationFunc(func() float64 { return d })
}

func assertInvariant(t *testing.T, c *Controller) {
	t.Helper()
	if a, b, ok := c.Loop(); ok && b-a < MinDuration-tolerance {
		t.Fatalf("active loop [%v, %v) shorter than %v", a, b, MinDuration)
	}
}

func TestCaptureCycle(t *testing.T) {
	media := &fakeMedia{time: 5}
	c := New(media, nil, duration(60))
	ctx := context.Background()

	if err := c.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	if c.State() != StatePointASet || *c.Region().A != 5 {
		t.Fatalf("expected A=5, got %v %+v", c.State(), c.Region())
	}

	media.time = 15
	if err := c.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	a, b, ok := c.Loop()
	if !ok || a != 5 || b != 15 {
		t.Fatalf("expected loop [5, 15), got [%v, %v) %v", a, b, ok)
	}

	if err := c.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateEmpty {
		t.Errorf("expected empty after third capture, got %v", c.State())
	}
}

func TestCaptureWhilePaused(t *testing.T) {
	media := &fakeMedia{time: 12, paused: true}
	c := New(media, nil, duration(90))
	ctx := context.Background()

	c.Capture(ctx)
	if *c.Region().A != 0 {
		t.Errorf("paused capture should set A=0, got %v", *c.Region().A)
	}
	c.Capture(ctx)
	if _, b, _ := c.Loop(); b != 90 {
		t.Errorf("paused capture should set B to duration, got %v", b)
	}
}

func TestCaptureWithoutDuration(t *testing.T) {
	for _, d := range []float64{math.NaN(), math.Inf(1), 0, -1} {
		media := &fakeMedia{paused: true}
		c := New(media, nil, duration(d))
		c.Capture(context.Background())

		err := c.Capture(context.Background())
		if !errors.Is(err, ErrDurationUnavailable) {
			t.Errorf("duration %v: expected ErrDurationUnavailable, got %v", d, err)
		}
		if c.State() != StatePointASet {
			t.Errorf("duration %v: state changed to %v", d, c.State())
		}
	}
}

func TestCaptureCoercesShortGap(t *testing.T) {
	media := &fakeMedia{time: 10}
	c := New(media, nil, duration(120))
	ctx := context.Background()

	c.Capture(ctx)
	media.time = 10.02
	c.Capture(ctx)

	a, b, ok := c.Loop()
	if !ok {
		t.Fatalf("expected coerced loop, state %v", c.State())
	}
	if math.Abs(b-(a+MinDuration)) > 1e-9 {
		t.Errorf("expected B coerced to %v, got %v", a+MinDuration, b)
	}
	assertInvariant(t, c)
}

func TestCaptureRejectsGapPastEnd(t *testing.T) {
	media := &fakeMedia{time: 10}
	c := New(media, nil, duration(10.03))
	ctx := context.Background()

	c.Capture(ctx)
	media.time = 10.02
	c.Capture(ctx)

	if c.State() != StatePointASet {
		t.Errorf("expected capture rejected, got %v %+v", c.State(), c.Region())
	}
	assertInvariant(t, c)
}

func TestCaptureClampsToDuration(t *testing.T) {
	media := &fakeMedia{time: 1}
	c := New(media, nil, duration(30))
	ctx := context.Background()

	c.Capture(ctx)
	media.time = 45
	c.Capture(ctx)
	if _, b, _ := c.Loop(); b != 30 {
		t.Errorf("expected B clamped to 30, got %v", b)
	}
}

func TestCaptureFromActiveAlwaysEmpties(t *testing.T) {
	regions := []Region{
		{A: ptr(0), B: ptr(1)},
		{A: ptr(5), B: ptr(15)},
		{A: ptr(100.5), B: ptr(100.55)},
	}
	for _, r := range regions {
		c := New(&fakeMedia{}, nil, nil)
		c.UpdateRegion(context.Background(), r.A, r.B)
		if c.State() != StateActive {
			t.Fatalf("region %v-%v not active", *r.A, *r.B)
		}
		c.Capture(context.Background())
		if c.State() != StateEmpty {
			t.Errorf("region %v-%v: expected empty, got %v", *r.A, *r.B, c.State())
		}
	}
}

func TestEnforce(t *testing.T) {
	tests := []struct {
		name      string
		time      float64
		paused    bool
		ended     bool
		wantSeek  bool
		wantPlays int
	}{
		{"inside loop", 10, false, false, false, 0},
		{"inside guard band", 14.99, false, false, true, 0},
		{"past end", 16, false, false, true, 0},
		{"paused resumes", 15, true, false, true, 1},
		{"ended does not resume", 15, true, true, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := &fakeMedia{}
			c := New(media, nil, nil)
			c.UpdateRegion(context.Background(), ptr(5), ptr(15))
			media.time, media.paused, media.ended = tt.time, tt.paused, tt.ended
			media.seeks = nil

			c.Enforce(context.Background())

			if got := len(media.seeks) > 0; got != tt.wantSeek {
				t.Fatalf("seek = %v, want %v", got, tt.wantSeek)
			}
			if tt.wantSeek && media.time != 5 {
				t.Errorf("expected seek to 5, got %v", media.time)
			}
			if media.plays != tt.wantPlays {
				t.Errorf("plays = %d, want %d", media.plays, tt.wantPlays)
			}
		})
	}
}

func TestPrime(t *testing.T) {
	for _, tc := range []struct {
		time float64
		want float64
	}{{2, 5}, {5, 5}, {9, 9}, {15, 5}, {40, 5}} {
		media := &fakeMedia{time: tc.time, paused: true}
		c := New(media, nil, nil)
		c.UpdateRegion(context.Background(), ptr(5), ptr(15))
		c.Prime()
		if media.time != tc.want {
			t.Errorf("prime at %v: time %v, want %v", tc.time, media.time, tc.want)
		}
	}

	media := &fakeMedia{time: 2}
	New(media, nil, nil).Prime()
	if len(media.seeks) != 0 {
		t.Error("prime without loop should not seek")
	}
}

func TestUpdateRegion(t *testing.T) {
	ctx := context.Background()
	view := &fakeView{}
	c := New(&fakeMedia{}, view, nil)

	c.UpdateRegion(ctx, ptr(3), ptr(8))
	if c.State() != StateActive {
		t.Fatalf("expected active, got %v", c.State())
	}
	if n := len(view.regions); n != 1 || view.regions[0] != [2]float64{3, 8} {
		t.Errorf("accepted update not drawn back, got %v", view.regions)
	}

	// too short and reversed pairs are ignored
	c.UpdateRegion(ctx, ptr(3), ptr(3.01))
	c.UpdateRegion(ctx, ptr(8), ptr(3))
	if a, b, _ := c.Loop(); a != 3 || b != 8 {
		t.Errorf("invalid update changed loop to [%v, %v)", a, b)
	}
	assertInvariant(t, c)

	c.UpdateRegion(ctx, ptr(4), nil)
	if c.State() != StatePointASet {
		t.Errorf("expected point A set, got %v", c.State())
	}
}

func TestRegionViewSync(t *testing.T) {
	view := &fakeView{}
	media := &fakeMedia{time: 2}
	c := New(media, view, duration(50))
	ctx := context.Background()

	var emitted []event.Event
	c.Bind(func(ev event.Event) { emitted = append(emitted, ev) })

	c.Capture(ctx)
	media.time = 7
	c.Capture(ctx)
	if len(view.regions) != 1 || view.regions[0] != [2]float64{2, 7} {
		t.Errorf("expected region [2 7] drawn, got %v", view.regions)
	}

	c.Reset()
	if view.clears == 0 {
		t.Error("expected view cleared on reset")
	}
	for _, ev := range emitted {
		if _, ok := ev.(event.RegionRemoved); ok {
			t.Error("self-triggered removal must not be emitted")
		}
	}

	// user removal is forwarded
	view.onRemove()
	if len(emitted) == 0 {
		t.Fatal("expected removal event")
	}
	if _, ok := emitted[len(emitted)-1].(event.RegionRemoved); !ok {
		t.Errorf("expected RegionRemoved, got %T", emitted[len(emitted)-1])
	}

	view.onUpdate(ptr(1), ptr(4))
	if u, ok := emitted[len(emitted)-1].(event.RegionUpdate); !ok || *u.A != 1 || *u.B != 4 {
		t.Errorf("expected RegionUpdate 1-4, got %#v", emitted[len(emitted)-1])
	}
}

func TestRemoveRegion(t *testing.T) {
	c := New(&fakeMedia{}, nil, nil)
	c.UpdateRegion(context.Background(), ptr(1), ptr(2))
	c.RemoveRegion()
	if c.State() != StateEmpty {
		t.Errorf("expected empty, got %v", c.State())
	}
}

func TestDispatch(t *testing.T) {
	media := &fakeMedia{time: 20}
	c := New(media, nil, duration(60))
	ctx := context.Background()

	if handled, _ := c.Dispatch(ctx, event.RegionUpdate{A: ptr(5), B: ptr(15)}); !handled {
		t.Fatal("region update not handled")
	}
	c.Dispatch(ctx, event.TimeUpdate{Time: 20})
	if media.time != 5 {
		t.Errorf("time update should loop back to 5, got %v", media.time)
	}
	if handled, _ := c.Dispatch(ctx, event.Ended{}); handled {
		t.Error("ended should be left to the player")
	}
	c.Dispatch(ctx, event.ToggleLoop{})
	if c.State() != StateEmpty {
		t.Errorf("toggle from active should clear, got %v", c.State())
	}
}

func TestButtonProjection(t *testing.T) {
	tests := []struct {
		state  State
		loaded bool
		want   Button
	}{
		{StateEmpty, false, ButtonDisabled},
		{StateActive, false, ButtonDisabled},
		{StateEmpty, true, ButtonIdle},
		{StatePointASet, true, ButtonPending},
		{StateActive, true, ButtonActive},
	}
	for _, tt := range tests {
		if got := ButtonFor(tt.state, tt.loaded); got != tt.want {
			t.Errorf("ButtonFor(%v, %v) = %v, want %v", tt.state, tt.loaded, got, tt.want)
		}
	}
	if ButtonActive.Title() != "Clear A|B repeat" {
		t.Errorf("unexpected title %q", ButtonActive.Title())
	}
}
