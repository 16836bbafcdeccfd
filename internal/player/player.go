package player

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/abloop"
	"github.com/dgnsrekt/trello-player/internal/attachment"
	"github.com/dgnsrekt/trello-player/internal/event"
	"github.com/dgnsrekt/trello-player/internal/pitch"
)

// TrackPicker chooses the first attachment to load from a fresh list.
type TrackPicker func(list []attachment.Attachment) int

// Player is the playback controller.
type Player struct {
	source attachment.Source
	cache  Resolver
	media  Media
	urls   URLRegistry
	prefs  Preferences
	graph  pitch.Graph
	view   abloop.RegionView
	pick   TrackPicker

	autoplay bool
	onChange func(Snapshot)
	onAlert  func(string)

	pitch *pitch.Controller
	loop  *abloop.Controller

	events chan event.Event

	mu          sync.Mutex
	session     Session
	attachments []attachment.Attachment
	loading     bool
	scrollToTop bool
	status      string

	objectURL   string
	sourceID    string // attachment id of the live source
	sourceToken uint64 // load token that set the live source
	durations   map[string]float64
	closed      bool
}

// Option configures a Player.
type Option func(*Player)

// WithPreferences sets where per-attachment pitch is loaded and saved.
func WithPreferences(prefs Preferences) Option {
	return func(p *Player) { p.prefs = prefs }
}

// WithGraph sets the pitch/tempo processing graph.
func WithGraph(g pitch.Graph) Option {
	return func(p *Player) { p.graph = g }
}

// WithRegionView sets the waveform view the loop is drawn in.
func WithRegionView(v abloop.RegionView) Option {
	return func(p *Player) { p.view = v }
}

// WithAutoplay sets whether the first track of a list starts playing.
func WithAutoplay(on bool) Option {
	return func(p *Player) { p.autoplay = on }
}

// WithTrackPicker chooses the first track of a list. The default is 0.
func WithTrackPicker(pick TrackPicker) Option {
	return func(p *Player) { p.pick = pick }
}

// WithChangeHandler is called with a snapshot after every state change.
func WithChangeHandler(fn func(Snapshot)) Option {
	return func(p *Player) { p.onChange = fn }
}

// WithAlertHandler is called with user-facing error messages.
func WithAlertHandler(fn func(string)) Option {
	return func(p *Player) { p.onAlert = fn }
}

// New creates a player.
func New(source attachment.Source, resolver Resolver, media Media, urls URLRegistry, opts ...Option) *Player {
	p := &Player{
		source:    source,
		cache:     resolver,
		media:     media,
		urls:      urls,
		autoplay:  true,
		events:    make(chan event.Event, 16),
		durations: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(p)
	}

	var saver pitch.PreferenceSaver
	if p.prefs != nil {
		saver = p.prefs
	}
	p.pitch = pitch.NewController(p.graph, saver)
	p.loop = abloop.New(media, p.view, abloop.DurationFunc(p.trackDuration))
	p.loop.Bind(p.Emit)
	return p
}

// Emit queues an event for Run. Events are dropped when the queue is full.
func (p *Player) Emit(ev event.Event) {
	select {
	case p.events <- ev:
	default:
		log.Warn("Dropping player event", "event", ev)
	}
}

// Run pumps events from media and Emit into Dispatch until ctx is done.
// Track changes run on their own goroutine so a slow fetch never stalls
// time updates.
func (p *Player) Run(ctx context.Context, media <-chan event.Event) {
	for {
		var ev event.Event
		select {
		case <-ctx.Done():
			return
		case ev = <-p.events:
		case e, ok := <-media:
			if !ok {
				media = nil
				continue
			}
			ev = e
		}

		if loads(ev) {
			go p.dispatch(ctx, ev)
			continue
		}
		p.dispatch(ctx, ev)
	}
}

// loads reports whether ev may start a track or list load. Those run
// concurrently so a newer load can supersede one still fetching.
func loads(ev event.Event) bool {
	switch ev.(type) {
	case event.Ended, event.Next, event.Prev, event.Select, event.Reload:
		return true
	}
	return false
}

func (p *Player) dispatch(ctx context.Context, ev event.Event) {
	if err := p.Dispatch(ctx, ev); err != nil {
		log.Debug("Event failed", "event", ev, "err", err)
	}
}

// LoadAttachmentList clears all per-track state, fetches the attachment
// list and loads its first track.
func (p *Player) LoadAttachmentList(ctx context.Context) error {
	p.mu.Lock()
	p.cache.Clear()
	p.attachments = nil
	p.durations = make(map[string]float64)
	p.loop.Reset()
	p.session.Loaded = false
	p.session.CurrentIndex = 0
	p.session.LoadToken++
	token := p.session.LoadToken
	p.loading = true
	p.status = ""
	p.pitch.Restore(pitch.DefaultState())
	p.mu.Unlock()
	p.notify()

	list, err := p.source.Attachments(ctx)

	p.mu.Lock()
	if token != p.session.LoadToken {
		p.mu.Unlock()
		log.Debug("Discarding stale attachment list")
		return nil
	}
	p.loading = false
	if err != nil {
		p.loop.Reset()
		p.session.Loaded = false
		p.mu.Unlock()
		log.Error("Error fetching attachments", "err", err)
		p.alert(AlertListFailed)
		p.notify()
		return &Error{Op: "list", Index: -1, Err: err}
	}

	p.attachments = list
	log.Debug("Attachments loaded", "count", len(list))
	if len(list) == 0 {
		p.unloadLocked()
		p.pitch.Restore(pitch.DefaultState())
		p.mu.Unlock()
		p.notify()
		return nil
	}

	start := 0
	if p.pick != nil {
		if i := p.pick(list); i >= 0 && i < len(list) {
			start = i
		}
	}
	opts := Options{Autoplay: p.autoplay}
	p.mu.Unlock()

	return p.LoadAttachment(ctx, start, opts)
}

// rollback is the state restored when a load fails.
type rollback struct {
	index  int
	loaded bool
	audio  pitch.State
}

// LoadAttachment loads the attachment at index. Out-of-range indices are
// ignored. A failed load restores the previous selection and alerts.
func (p *Player) LoadAttachment(ctx context.Context, index int, opts Options) error {
	p.mu.Lock()
	return p.loadLocked(ctx, index, opts)
}

// loadRelative loads the attachment delta positions from the current one.
// The target is chosen in the same critical section that claims the load
// token, so quick repeated presses each move one track further.
func (p *Player) loadRelative(ctx context.Context, delta int, opts Options) error {
	p.mu.Lock()
	return p.loadLocked(ctx, p.session.CurrentIndex+delta, opts)
}

// loadLocked runs a load with p.mu held on entry. It releases the lock.
func (p *Player) loadLocked(ctx context.Context, index int, opts Options) error {
	if p.closed || index < 0 || index >= len(p.attachments) {
		p.mu.Unlock()
		return nil
	}

	prev := rollback{
		index:  p.session.CurrentIndex,
		loaded: p.session.Loaded,
		audio:  p.pitch.State(),
	}
	p.loop.Reset()
	p.session.CurrentIndex = index
	p.session.LoadToken++
	token := p.session.LoadToken
	p.session.Loaded = false
	p.loading = true
	p.scrollToTop = opts.ScrollToTop
	p.status = ""

	list := p.attachments
	a := list[index]
	if err := p.media.Pause(); err != nil {
		log.Debug("Pause before load failed", "err", err)
	}
	p.pitch.ClearBuffers()
	p.mu.Unlock()
	p.notify()

	log.Debug("Loading attachment", "index", index, "name", a.Name, "token", token)
	blob, err := p.cache.Resolve(ctx, a, attachment.Neighbors(list, index)...)

	p.mu.Lock()
	if token != p.session.LoadToken {
		p.mu.Unlock()
		log.Debug("Discarding stale load", "index", index, "token", token)
		return nil
	}
	if err != nil {
		return p.failLocked(index, prev, err)
	}

	url := p.urls.Create(blob)
	if err := p.media.SetSource(url); err != nil {
		p.urls.Revoke(url)
		return p.failLocked(index, prev, err)
	}
	p.revokeLocked()
	p.objectURL = url
	p.sourceID = a.ID
	p.sourceToken = token
	p.mu.Unlock()

	semitones, ok := 0.0, false
	if p.prefs != nil {
		semitones, ok = p.prefs.LoadPitch(ctx, a)
	}
	if !ok || math.IsNaN(semitones) {
		semitones = 0
	}

	p.mu.Lock()
	if token != p.session.LoadToken {
		p.mu.Unlock()
		log.Debug("Discarding stale load", "index", index, "token", token)
		return nil
	}
	p.pitch.SetAttachment(&a)
	p.pitch.ApplyPitch(ctx, semitones, false)
	p.pitch.ApplyTempo(ctx, pitch.DefaultTempo)
	p.session.Loaded = true
	p.loading = false
	p.cache.Prefetch(list, index)

	if opts.Autoplay {
		if err := p.media.Play(ctx); err != nil {
			log.Warn("Playback start was blocked", "err", err)
			p.status = StatusAutoplayBlocked
		}
	} else {
		if err := p.media.Pause(); err != nil {
			log.Debug("Pause after load failed", "err", err)
		}
		if err := p.media.Seek(0); err != nil {
			log.Debug("Rewind after load failed", "err", err)
		}
	}
	p.mu.Unlock()
	p.notify()
	return nil
}

// failLocked rolls back a failed load and alerts. It releases the lock.
func (p *Player) failLocked(index int, prev rollback, err error) error {
	p.session.CurrentIndex = prev.index
	p.session.Loaded = prev.loaded
	p.loading = false
	p.pitch.Restore(prev.audio)
	if p.objectURL != "" {
		// the previous source is still playing
		p.sourceToken = p.session.LoadToken
	}
	p.mu.Unlock()

	log.Error("Failed to load attachment audio", "index", index, "err", err)
	p.alert(AlertLoadFailed)
	p.notify()
	return &Error{Op: "load", Index: index, Err: err}
}

// unloadLocked drops the media source and its object URL.
func (p *Player) unloadLocked() {
	if err := p.media.Pause(); err != nil {
		log.Debug("Pause failed", "err", err)
	}
	if err := p.media.SetSource(""); err != nil {
		log.Debug("Unloading media failed", "err", err)
	}
	p.revokeLocked()
	p.loop.Reset()
	p.session.Loaded = false
}

func (p *Player) revokeLocked() {
	if p.objectURL == "" {
		return
	}
	p.urls.Revoke(p.objectURL)
	p.objectURL = ""
	p.sourceID = ""
}

// trackDuration returns the best known duration of the current track:
// the media element, then the waveform view, then the duration cache.
// Called with the lock held.
func (p *Player) trackDuration() float64 {
	if d := p.media.Duration(); positive(d) {
		return d
	}
	if r, ok := p.view.(abloop.DurationReporter); ok {
		if d := r.Duration(); positive(d) {
			return d
		}
	}
	if d, ok := p.durations[p.sourceID]; ok && positive(d) {
		return d
	}
	return math.NaN()
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Snapshot returns the current render state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	durations := make(map[string]float64, len(p.durations))
	for id, d := range p.durations {
		durations[id] = d
	}
	audio := p.pitch.State()
	return Snapshot{
		Attachments: p.attachments,
		Index:       p.session.CurrentIndex,
		Loaded:      p.session.Loaded,
		Loading:     p.loading,
		Playing:     p.session.Loaded && !p.media.Paused() && !p.media.Ended(),
		ScrollToTop: p.scrollToTop,
		Position:    p.media.CurrentTime(),
		Duration:    p.trackDuration(),
		Pitch:       audio.Pitch,
		Tempo:       audio.Tempo,
		Loop:        p.loop.Button(p.session.Loaded),
		LoopRegion:  p.loop.Region(),
		Status:      p.status,
		Durations:   durations,
	}
}

// Session returns a copy of the playback session.
func (p *Player) Session() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Close unloads the media and revokes the live object URL.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.session.LoadToken++
	p.unloadLocked()
	return nil
}

func (p *Player) notify() {
	if p.onChange == nil {
		return
	}
	p.onChange(p.Snapshot())
}

func (p *Player) alert(msg string) {
	if p.onAlert == nil {
		log.Warn("Alert", "message", msg)
		return
	}
	p.onAlert(msg)
}

var errNotLoaded = errors.New("no track loaded")
