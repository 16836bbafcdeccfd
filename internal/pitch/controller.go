package pitch

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/attachment"
)

// PreferenceSaver persists a committed pitch for an attachment.
type PreferenceSaver interface {
	SavePitch(ctx context.Context, a attachment.Attachment, semitones float64) error
}

// State is the desired processing state shown to the user.
type State struct {
	Pitch float64 // semitones
	Tempo float64 // speed multiplier
}

// DefaultState is the state of a freshly loaded track.
func DefaultState() State {
	return State{Pitch: 0, Tempo: DefaultTempo}
}

// Controller applies pitch and tempo to a lazily created processing node.
// Node failures never fail an apply: the desired value is kept and
// playback continues unprocessed.
type Controller struct {
	graph Graph
	prefs PreferenceSaver

	mu      sync.Mutex
	state   State
	node    Node
	current *attachment.Attachment
}

// NewController creates a controller. graph and prefs may be nil.
func NewController(graph Graph, prefs PreferenceSaver) *Controller {
	return &Controller{
		graph: graph,
		prefs: prefs,
		state: DefaultState(),
	}
}

// State returns the desired pitch and tempo.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasNode reports whether a processing node exists.
func (c *Controller) HasNode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.node != nil
}

// SetAttachment sets the attachment committed pitches are saved for.
func (c *Controller) SetAttachment(a *attachment.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = a
}

// ApplyPitch sets the desired pitch and forwards it to the node. With
// persist set the value is saved for the current attachment.
func (c *Controller) ApplyPitch(ctx context.Context, semitones float64, persist bool) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	clamped := ClampPitch(semitones)
	c.state.Pitch = clamped

	if err := c.ensureNode(ctx); err != nil {
		log.Warn("Pitch shift unavailable", "err", err)
	} else {
		c.resume(ctx)
		c.setParam(ParamPitchSemitones, clamped)
	}

	if persist && c.current != nil && c.prefs != nil {
		if err := c.prefs.SavePitch(ctx, *c.current, clamped); err != nil {
			log.Error("Failed to save pitch preference", "attachment", c.current.ID, "err", err)
		}
	}
	return clamped
}

// ApplyTempo sets the desired tempo and forwards it to the node. Buffered
// samples are dropped when the tempo changes.
func (c *Controller) ApplyTempo(ctx context.Context, speed float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	clamped := ClampTempo(speed)
	previous := c.state.Tempo
	c.state.Tempo = clamped

	if err := c.ensureNode(ctx); err != nil {
		log.Warn("Playback speed adjustment unavailable", "err", err)
		return clamped
	}
	c.resume(ctx)
	if clamped != previous {
		c.clearBuffers()
	}
	c.setTempo(clamped)
	return clamped
}

// Prepare makes sure the node exists and carries the desired values before
// audio starts.
func (c *Controller) Prepare(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureNode(ctx); err != nil {
		return err
	}
	c.setTempo(c.state.Tempo)
	c.setParam(ParamPitchSemitones, c.state.Pitch)
	c.resume(ctx)
	return nil
}

// Restore rolls the desired values back to s and forwards them to an
// existing node. It never creates a node.
func (c *Controller) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = State{Pitch: ClampPitch(s.Pitch), Tempo: ClampTempo(s.Tempo)}
	if c.node != nil {
		c.setTempo(c.state.Tempo)
		c.setParam(ParamPitchSemitones, c.state.Pitch)
	}
}

// ClearBuffers drops samples queued in the node. Without a node or port
// it does nothing.
func (c *Controller) ClearBuffers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearBuffers()
}

// ensureNode creates and connects the node on first use and re-applies
// both values when it already exists. Must be called with the lock held.
func (c *Controller) ensureNode(ctx context.Context) error {
	if c.node != nil {
		c.setTempo(c.state.Tempo)
		c.setParam(ParamPitchSemitones, c.state.Pitch)
		return nil
	}
	if c.graph == nil {
		return ErrNoGraph
	}

	node, err := c.graph.NewNode(ctx)
	if err != nil {
		return err
	}
	if err := c.graph.Connect(ctx, node); err != nil {
		return err
	}
	c.node = node
	log.Debug("Processing node created")

	c.setTempo(c.state.Tempo)
	c.setParam(ParamPitchSemitones, c.state.Pitch)
	return nil
}

func (c *Controller) resume(ctx context.Context) {
	if c.graph == nil {
		return
	}
	if err := c.graph.Resume(ctx); err != nil {
		log.Warn("Audio context resume blocked", "err", err)
	}
}

func (c *Controller) setTempo(speed float64) {
	c.setParam(ParamTempo, speed)
	c.setParam(ParamRate, 1)
	c.setParam(ParamPitch, 1)
}

// setParam prefers a live parameter and falls back to the port.
func (c *Controller) setParam(name string, value float64) {
	if c.node == nil {
		return
	}
	var err error
	if p, ok := c.node.Parameter(name); ok {
		err = p.SetValue(value)
	} else if port := c.node.Port(); port != nil {
		err = port.PostMessage(Message{Type: name, Value: value})
	}
	if err != nil {
		log.Error("Unable to update processing parameter", "param", name, "err", err)
	}
}

func (c *Controller) clearBuffers() {
	if c.node == nil {
		return
	}
	port := c.node.Port()
	if port == nil {
		return
	}
	if err := port.PostMessage(Message{Type: MessageClearBuffers}); err != nil {
		log.Warn("Failed to clear processing buffers", "err", err)
	}
}
