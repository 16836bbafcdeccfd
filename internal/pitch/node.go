package pitch

import (
	"context"
	"errors"
)

// Parameter and message names understood by the processing node.
const (
	ParamPitchSemitones = "pitchSemitones"
	ParamTempo          = "tempo"
	ParamRate           = "rate"
	ParamPitch          = "pitch"

	MessageClearBuffers = "clearBuffers"
)

// ErrNoGraph is returned when the controller has no processing graph.
var ErrNoGraph = errors.New("no audio processing graph")

// Parameter is a live, automatable node parameter.
type Parameter interface {
	SetValue(v float64) error
}

// Message is a control message posted to the node's port.
type Message struct {
	Type  string  `json:"type"`
	Value float64 `json:"value,omitempty"`
}

// Port delivers control messages to a node that has no live parameters.
type Port interface {
	PostMessage(msg Message) error
}

// Node is a pitch/tempo processing unit. A node exposes live parameters,
// a message port, or both; Port returns nil when it has none.
type Node interface {
	Parameter(name string) (Parameter, bool)
	Port() Port
}

// Graph builds the processing chain between the media element and the
// output.
type Graph interface {
	// NewNode creates the processing node, loading its module on first use.
	NewNode(ctx context.Context) (Node, error)
	// Connect routes the media source through node. The media source is
	// created once; later calls disconnect and reconnect it.
	Connect(ctx context.Context, node Node) error
	// Resume wakes a suspended graph.
	Resume(ctx context.Context) error
}
