package abloop

import "context"

// Media is the part of the media element the loop drives.
type Media interface {
	CurrentTime() float64
	Paused() bool
	Ended() bool
	Seek(seconds float64) error
	Play(ctx context.Context) error
}

// DurationSource reports the current track duration. Unknown durations
// are NaN, infinite or not positive.
type DurationSource interface {
	TrackDuration() float64
}

// DurationFunc adapts a function to DurationSource.
type DurationFunc func() float64

// TrackDuration implements DurationSource.
func (f DurationFunc) TrackDuration() float64 { return f() }

// RegionView draws the loop in a waveform view.
type RegionView interface {
	SetLoopRegion(a, b float64)
	ClearLoopRegion()
}

// RegionNotifier is implemented by views that let the user edit the
// region. Handlers may be called synchronously from ClearLoopRegion.
type RegionNotifier interface {
	OnRegionUpdate(func(a, b *float64))
	OnRegionRemoved(func())
}

// DurationReporter is implemented by views that know the decoded
// duration of the track.
type DurationReporter interface {
	Duration() float64
}
