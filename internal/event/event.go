// Package event defines the media, region and UI events consumed by the
// player's single dispatch point.
package event

// Event is any value delivered to a dispatch point.
type Event interface{}

// Media element events.

// TimeUpdate reports the playback position while playing.
type TimeUpdate struct {
	Time float64 // seconds
}

// Seeked reports a discontinuous jump in the playback position.
type Seeked struct {
	Time float64 // seconds
}

// Play reports that playback is about to start.
type Play struct{}

// Pause reports that playback paused.
type Pause struct{}

// LoadStart reports that the element began loading a new source.
type LoadStart struct {
	Source string
}

// LoadedMetadata reports the duration of the loaded source.
type LoadedMetadata struct {
	Source   string
	Duration float64 // seconds
}

// Ended reports that playback reached the end of the source.
type Ended struct{}

// MediaError reports a failure inside the media element.
type MediaError struct {
	Source string
	Err    error
}

// Waveform region events.

// RegionUpdate carries loop points edited in the waveform view. Either
// point may be nil.
type RegionUpdate struct {
	A, B *float64
}

// RegionRemoved reports that the loop region was removed in the view.
type RegionRemoved struct{}

// UI actions.

// TogglePlay toggles between playing and paused.
type TogglePlay struct{}

// Stop pauses and rewinds to the start.
type Stop struct{}

// Next moves to the next attachment.
type Next struct{}

// Prev moves to the previous attachment.
type Prev struct{}

// Select loads the attachment with the given id.
type Select struct {
	ID string
}

// SetPitch moves the pitch slider. Commit is set when the slider settles.
type SetPitch struct {
	Value  float64
	Commit bool
}

// SetTempo moves the tempo slider.
type SetTempo struct {
	Value float64
}

// ToggleLoop presses the A/B loop button.
type ToggleLoop struct{}

// Reload refetches the attachment list.
type Reload struct{}

// Seek moves playback to Time seconds.
type Seek struct {
	Time float64
}
