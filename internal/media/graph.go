package media

import (
	"context"
	"errors"

	"github.com/dgnsrekt/trello-player/internal/pitch"
)

// ErrProcessingUnavailable is returned by NopGraph.
var ErrProcessingUnavailable = errors.New("pitch/tempo processing is not available on this audio device")

// NopGraph is a processing graph without a processing node.
type NopGraph struct{}

var _ pitch.Graph = NopGraph{}

// NewNode implements pitch.Graph.
func (NopGraph) NewNode(context.Context) (pitch.Node, error) {
	return nil, ErrProcessingUnavailable
}

// Connect implements pitch.Graph.
func (NopGraph) Connect(context.Context, pitch.Node) error {
	return ErrProcessingUnavailable
}

// Resume implements pitch.Graph.
func (NopGraph) Resume(context.Context) error {
	return nil
}
