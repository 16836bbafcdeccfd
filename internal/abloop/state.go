package abloop

import "math"

// Loop timing constants, in seconds.
const (
	// MinDuration is the shortest loop that can be active.
	MinDuration = 0.05
	// GuardBand is how early before B playback jumps back to A.
	GuardBand = 0.02

	tolerance = 1e-9
)

// State is the position of the loop in its state machine.
type State int

const (
	// StateEmpty has no loop points.
	StateEmpty State = iota
	// StatePointASet has A captured and B unset.
	StatePointASet
	// StateActive has both points with a valid gap.
	StateActive
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePointASet:
		return "point-a-set"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Region holds the loop points. A nil point is unset.
type Region struct {
	A, B *float64
}

// State derives the state machine position from the points.
func (r Region) State() State {
	switch {
	case r.A == nil:
		return StateEmpty
	case r.B == nil:
		return StatePointASet
	default:
		return StateActive
	}
}

// validGap reports whether [a, b) is long enough to loop.
func validGap(a, b float64) bool {
	return b-a >= MinDuration-tolerance
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Button is the loop button affordance, a projection of the state plus
// whether a track is loaded.
type Button int

const (
	ButtonDisabled Button = iota
	ButtonIdle
	ButtonPending
	ButtonActive
)

// String returns the string representation of the button state.
func (b Button) String() string {
	switch b {
	case ButtonDisabled:
		return "disabled"
	case ButtonIdle:
		return "idle"
	case ButtonPending:
		return "pending"
	case ButtonActive:
		return "active"
	default:
		return "unknown"
	}
}

// Title is the hint shown for the button.
func (b Button) Title() string {
	switch b {
	case ButtonActive:
		return "Clear A|B repeat"
	case ButtonPending:
		return "Set B point for A|B repeat"
	default:
		return "Set A|B repeat points"
	}
}

// ButtonFor projects a state onto the button.
func ButtonFor(s State, loaded bool) Button {
	if !loaded {
		return ButtonDisabled
	}
	switch s {
	case StateActive:
		return ButtonActive
	case StatePointASet:
		return ButtonPending
	default:
		return ButtonIdle
	}
}
