package player

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/event"
)

// Dispatch is the single entry point for media, region and UI events.
func (p *Player) Dispatch(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case event.Play:
		p.onPlay(ctx)
	case event.Pause:
		p.withLock(func() { p.pitch.ClearBuffers() })
	case event.LoadStart:
		p.withLock(func() { p.pitch.ClearBuffers() })
	case event.Seeked:
		p.withLock(func() {
			p.pitch.ClearBuffers()
			p.loop.Enforce(ctx)
		})
	case event.TimeUpdate, event.RegionUpdate, event.RegionRemoved:
		p.mu.Lock()
		_, err := p.loop.Dispatch(ctx, ev)
		p.mu.Unlock()
		if _, ok := ev.(event.TimeUpdate); !ok {
			p.notify()
		}
		return err
	case event.LoadedMetadata:
		p.onLoadedMetadata(e)
	case event.Ended:
		return p.onEnded(ctx)
	case event.MediaError:
		log.Error("Media error", "source", e.Source, "err", e.Err)

	case event.TogglePlay:
		return p.TogglePlay(ctx)
	case event.Stop:
		return p.Stop()
	case event.Next:
		return p.Next(ctx)
	case event.Prev:
		return p.Prev(ctx)
	case event.Select:
		return p.Select(ctx, e.ID)
	case event.SetPitch:
		p.SetPitch(ctx, e.Value, e.Commit)
	case event.SetTempo:
		p.SetTempo(ctx, e.Value)
	case event.ToggleLoop:
		return p.ToggleLoop(ctx)
	case event.Seek:
		return p.SeekTo(e.Time)
	case event.Reload:
		return p.LoadAttachmentList(ctx)
	default:
		log.Debug("Unhandled event", "event", ev)
	}
	return nil
}

func (p *Player) withLock(fn func()) {
	p.mu.Lock()
	fn()
	p.mu.Unlock()
	p.notify()
}

// onPlay readies the processing node and primes the loop before audio
// starts.
func (p *Player) onPlay(ctx context.Context) {
	p.mu.Lock()
	if err := p.pitch.Prepare(ctx); err != nil {
		log.Debug("Unable to prepare pitch processor on play", "err", err)
	}
	p.loop.Prime()
	p.status = ""
	p.mu.Unlock()
	p.notify()
}

// onLoadedMetadata caches the duration of the live source when it still
// belongs to the current load.
func (p *Player) onLoadedMetadata(e event.LoadedMetadata) {
	p.mu.Lock()
	if e.Source != p.objectURL || p.sourceToken != p.session.LoadToken || !positive(e.Duration) {
		p.mu.Unlock()
		return
	}
	p.durations[p.sourceID] = e.Duration
	p.mu.Unlock()
	p.notify()
}

// onEnded loops an active A/B region, otherwise advances to the next
// attachment or wraps to the first one without autoplay.
func (p *Player) onEnded(ctx context.Context) error {
	p.mu.Lock()
	if a, _, ok := p.loop.Loop(); ok {
		if err := p.media.Seek(a); err != nil {
			log.Warn("Loop seek failed", "err", err)
		}
		if err := p.media.Play(ctx); err != nil {
			log.Debug("Loop resume blocked", "err", err)
		}
		p.mu.Unlock()
		p.notify()
		return nil
	}
	if p.session.CurrentIndex < len(p.attachments)-1 {
		return p.loadLocked(ctx, p.session.CurrentIndex+1, Options{Autoplay: true})
	}
	return p.loadLocked(ctx, 0, Options{Autoplay: false, ScrollToTop: true})
}
