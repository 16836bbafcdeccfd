package player

import "fmt"

// User-facing messages.
const (
	AlertLoadFailed          = "Failed to load audio attachment. Please try again."
	AlertListFailed          = "Failed to load attachments. Please try again."
	AlertDurationUnavailable = "Track duration is not available yet. Please try again after the audio loads."

	StatusAutoplayBlocked = "Press play or choose a track to start playback."
)

// Error describes a failed player operation.
type Error struct {
	Op    string // "load" or "list"
	Index int    // attachment index, -1 when not applicable
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("player %s %d: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("player %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
