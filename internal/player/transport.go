package player

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/abloop"
	"github.com/dgnsrekt/trello-player/internal/attachment"
)

// Play starts playback of the loaded track.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if !p.session.Loaded {
		p.mu.Unlock()
		return errNotLoaded
	}
	p.status = ""
	err := p.media.Play(ctx)
	if err != nil {
		log.Warn("Playback start was blocked", "err", err)
		p.status = StatusAutoplayBlocked
	}
	p.mu.Unlock()
	p.notify()
	return err
}

// Pause pauses playback.
func (p *Player) Pause() error {
	p.mu.Lock()
	err := p.media.Pause()
	p.mu.Unlock()
	p.notify()
	return err
}

// TogglePlay plays a paused or ended track and pauses a playing one.
func (p *Player) TogglePlay(ctx context.Context) error {
	p.mu.Lock()
	paused := p.media.Paused() || p.media.Ended()
	p.mu.Unlock()
	if paused {
		return p.Play(ctx)
	}
	return p.Pause()
}

// Stop pauses and rewinds to the start.
func (p *Player) Stop() error {
	p.mu.Lock()
	err := errors.Join(p.media.Pause(), p.media.Seek(0))
	p.mu.Unlock()
	p.notify()
	return err
}

// Next loads the following attachment. It does nothing on the last one.
func (p *Player) Next(ctx context.Context) error {
	return p.loadRelative(ctx, 1, DefaultOptions())
}

// Prev loads the preceding attachment. It does nothing on the first one.
func (p *Player) Prev(ctx context.Context) error {
	return p.loadRelative(ctx, -1, DefaultOptions())
}

// Select loads the attachment with the given id.
func (p *Player) Select(ctx context.Context, id string) error {
	p.mu.Lock()
	return p.loadLocked(ctx, attachment.IndexOf(p.attachments, id), DefaultOptions())
}

// SetPitch moves the pitch slider. The value is saved only on commit.
func (p *Player) SetPitch(ctx context.Context, semitones float64, commit bool) float64 {
	p.mu.Lock()
	if !p.session.Loaded {
		current := p.pitch.State().Pitch
		p.mu.Unlock()
		return current
	}
	v := p.pitch.ApplyPitch(ctx, semitones, commit)
	p.mu.Unlock()
	p.notify()
	return v
}

// SetTempo moves the tempo slider.
func (p *Player) SetTempo(ctx context.Context, speed float64) float64 {
	p.mu.Lock()
	if !p.session.Loaded {
		current := p.pitch.State().Tempo
		p.mu.Unlock()
		return current
	}
	v := p.pitch.ApplyTempo(ctx, speed)
	p.mu.Unlock()
	p.notify()
	return v
}

// ToggleLoop presses the A/B loop button.
func (p *Player) ToggleLoop(ctx context.Context) error {
	p.mu.Lock()
	if !p.session.Loaded {
		p.mu.Unlock()
		return nil
	}
	err := p.loop.Capture(ctx)
	p.mu.Unlock()

	if errors.Is(err, abloop.ErrDurationUnavailable) {
		p.alert(AlertDurationUnavailable)
	}
	p.notify()
	return err
}

// SeekTo moves playback to seconds.
func (p *Player) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.session.Loaded {
		return errNotLoaded
	}
	return p.media.Seek(seconds)
}
