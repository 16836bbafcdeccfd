package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/trello-player/internal/abloop"
	"github.com/dgnsrekt/trello-player/internal/pitch"
	"github.com/dgnsrekt/trello-player/internal/player"
	"github.com/dustin/go-humanize"
)

// formatClock renders seconds as m:ss, or --:-- when unknown.
func formatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "--:--"
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// progressPercent is the played fraction of the track.
func progressPercent(position, duration float64) float64 {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, position/duration))
}

// regionLine marks the loop points on a line as wide as the progress bar.
func regionLine(width int, duration float64, region abloop.Region) string {
	if width <= 0 || region.A == nil {
		return ""
	}
	line := []rune(strings.Repeat(" ", width))
	col := func(t float64) int {
		return int(math.Round(progressPercent(t, duration) * float64(width-1)))
	}

	a := col(*region.A)
	if region.B != nil {
		for i := a; i <= col(*region.B) && i < width; i++ {
			line[i] = '─'
		}
		line[col(*region.B)] = 'B'
	}
	line[a] = 'A'
	return string(line)
}

// controlsLine renders pitch, tempo and the A/B button.
func controlsLine(s player.Snapshot) string {
	render := controlStyle
	if s.Loaded {
		render = activeControlStyle
	}
	parts := []string{
		render("pitch " + pitch.FormatPitch(s.Pitch) + " st"),
		render("tempo " + pitch.FormatTempo(s.Tempo)),
	}

	loop := "A|B"
	switch s.Loop {
	case abloop.ButtonPending:
		loop = "A|·"
	case abloop.ButtonActive:
		loop = fmt.Sprintf("A|B %s-%s", formatClock(deref(s.LoopRegion.A)), formatClock(deref(s.LoopRegion.B)))
	}
	if s.Loop == abloop.ButtonDisabled {
		parts = append(parts, controlStyle(loop))
	} else {
		parts = append(parts, activeControlStyle(loop)+controlStyle(" "+s.Loop.Title()))
	}
	return strings.Join(parts, controlStyle(" · "))
}

// trackStatus summarizes the list for the status bar.
func trackStatus(s player.Snapshot) string {
	n := len(s.Attachments)
	switch {
	case s.Loading && n == 0:
		return "Loading attachments…"
	case n == 0:
		return "No audio attachments"
	case s.Loading:
		return fmt.Sprintf("Loading %s of %d…", humanize.Ordinal(s.Index+1), n)
	}
	return fmt.Sprintf("Track %d of %d", s.Index+1, n)
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func padRight(s string, width int) string {
	return s + strings.Repeat(" ", max(0, width-lipgloss.Width(s)))
}
