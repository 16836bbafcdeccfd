package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/event"
	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

var (
	// ErrUnknownSource is returned for a URL the registry does not know.
	ErrUnknownSource = errors.New("unknown media source")
	// ErrUnsupportedFormat is returned for blobs that are not MP3.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrNoSource is returned when playing without a source.
	ErrNoSource = errors.New("no media source loaded")
	// ErrSampleRate is returned when a track's sample rate differs from
	// the audio device's.
	ErrSampleRate = errors.New("sample rate differs from the audio device")
)

// TimeUpdateInterval is how often a playing element reports its position.
const TimeUpdateInterval = 250 * time.Millisecond

// go-mp3 always decodes to 16-bit stereo.
const bytesPerFrame = 4

// The audio device can be opened once per process.
var (
	deviceOnce sync.Once
	device     *oto.Context
	deviceRate int
	deviceErr  error
)

func openDevice(sampleRate int) (*oto.Context, int, error) {
	deviceOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		device, ready, deviceErr = oto.NewContext(op)
		if deviceErr != nil {
			deviceErr = fmt.Errorf("failed to create oto context: %w", deviceErr)
			return
		}
		<-ready
		deviceRate = sampleRate
		log.Debug("Audio device ready", "sampleRate", sampleRate)
	})
	return device, deviceRate, deviceErr
}

// stream tracks how far the device has read into the decoder.
type stream struct {
	mu     sync.Mutex
	dec    *mp3.Decoder
	offset int64
	eof    bool
}

func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.dec.Read(p)
	s.offset += int64(n)
	if errors.Is(err, io.EOF) {
		s.eof = true
	}
	return n, err
}

func (s *stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, err := s.dec.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	s.offset = pos
	s.eof = false
	return pos, nil
}

func (s *stream) position() (offset int64, eof bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, s.eof
}

// Element plays one source at a time on the audio device.
type Element struct {
	urls   *URLRegistry
	events chan event.Event
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	player   *oto.Player
	stream   *stream
	rate     int
	source   string
	paused   bool
	ended    bool
	duration float64
}

// NewElement creates an element reading blobs from urls.
func NewElement(urls *URLRegistry) *Element {
	e := &Element{
		urls:     urls,
		events:   make(chan event.Event, 64),
		done:     make(chan struct{}),
		paused:   true,
		duration: math.NaN(),
	}
	go e.watch()
	return e
}

// Events returns the channel playback events are delivered on.
func (e *Element) Events() <-chan event.Event {
	return e.events
}

func (e *Element) emit(ev event.Event) {
	select {
	case e.events <- ev:
	default:
		log.Debug("Dropping media event", "event", ev)
	}
}

// SetSource loads the blob behind url. An empty url unloads.
func (e *Element) SetSource(url string) error {
	if url == "" {
		e.mu.Lock()
		e.unloadLocked()
		e.mu.Unlock()
		return nil
	}

	blob, ok := e.urls.Lookup(url)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, url)
	}
	if ct := strings.ToLower(blob.ContentType); strings.Contains(ct, "mp4") || strings.Contains(ct, "m4a") || strings.Contains(ct, "aac") {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, blob.ContentType)
	}
	dec, err := mp3.NewDecoder(bytes.NewReader(blob.Data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	ctx, rate, err := openDevice(dec.SampleRate())
	if err != nil {
		return err
	}
	if rate != dec.SampleRate() {
		return fmt.Errorf("%w: %d Hz, device %d Hz", ErrSampleRate, dec.SampleRate(), rate)
	}

	s := &stream{dec: dec}
	e.mu.Lock()
	e.unloadLocked()
	e.stream = s
	e.player = ctx.NewPlayer(s)
	e.rate = rate
	e.source = url
	e.paused = true
	e.ended = false
	e.duration = math.NaN()
	if n := dec.Length(); n > 0 {
		e.duration = float64(n) / float64(rate*bytesPerFrame)
	}
	duration := e.duration
	e.mu.Unlock()

	e.emit(event.LoadStart{Source: url})
	e.emit(event.LoadedMetadata{Source: url, Duration: duration})
	return nil
}

func (e *Element) unloadLocked() {
	if e.player != nil {
		e.player.Pause()
		if err := e.player.Close(); err != nil {
			log.Debug("Closing audio player failed", "err", err)
		}
	}
	e.player = nil
	e.stream = nil
	e.source = ""
	e.paused = true
	e.ended = false
	e.duration = math.NaN()
}

// Play starts or resumes playback. An ended source restarts from zero.
func (e *Element) Play(context.Context) error {
	e.mu.Lock()
	if e.player == nil {
		e.mu.Unlock()
		return ErrNoSource
	}
	if e.ended {
		if _, err := e.player.Seek(0, io.SeekStart); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("rewinding: %w", err)
		}
		e.ended = false
	}
	e.player.Play()
	e.paused = false
	e.mu.Unlock()

	e.emit(event.Play{})
	return nil
}

// Pause pauses playback.
func (e *Element) Pause() error {
	e.mu.Lock()
	if e.player == nil || e.paused {
		e.mu.Unlock()
		return nil
	}
	e.player.Pause()
	e.paused = true
	e.mu.Unlock()
	e.emit(event.Pause{})
	return nil
}

// Seek moves playback to seconds, clamped to the track.
func (e *Element) Seek(seconds float64) error {
	e.mu.Lock()
	if e.player == nil {
		e.mu.Unlock()
		return ErrNoSource
	}
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	offset := int64(seconds*float64(e.rate)) * bytesPerFrame
	if n := e.stream.dec.Length(); n > 0 && offset > n {
		offset = n
	}
	if _, err := e.player.Seek(offset, io.SeekStart); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("seeking: %w", err)
	}
	e.ended = false
	e.mu.Unlock()
	e.emit(event.Seeked{Time: seconds})
	return nil
}

// CurrentTime returns the playback position in seconds.
func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTimeLocked()
}

func (e *Element) currentTimeLocked() float64 {
	if e.player == nil || e.rate == 0 {
		return 0
	}
	offset, _ := e.stream.position()
	played := offset - int64(e.player.BufferedSize())
	if played < 0 {
		played = 0
	}
	return float64(played) / float64(e.rate*bytesPerFrame)
}

// Paused reports whether playback is paused.
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Ended reports whether playback reached the end.
func (e *Element) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

// Duration returns the track duration in seconds, or NaN.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// watch reports the position while playing and detects the end.
func (e *Element) watch() {
	ticker := time.NewTicker(TimeUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		if e.player == nil || e.paused {
			e.mu.Unlock()
			continue
		}
		_, eof := e.stream.position()
		if eof && !e.player.IsPlaying() {
			e.paused = true
			e.ended = true
			e.mu.Unlock()
			e.emit(event.Ended{})
			continue
		}
		t := e.currentTimeLocked()
		e.mu.Unlock()
		e.emit(event.TimeUpdate{Time: t})
	}
}

// Close unloads the source and stops reporting.
func (e *Element) Close() error {
	e.once.Do(func() {
		close(e.done)
		e.mu.Lock()
		e.unloadLocked()
		e.mu.Unlock()
	})
	return nil
}
