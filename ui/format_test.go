package ui

import (
	"math"
	"strings"
	"testing"

	"github.com/dgnsrekt/trello-player/internal/abloop"
	"github.com/dgnsrekt/trello-player/internal/attachment"
	"github.com/dgnsrekt/trello-player/internal/player"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{59.9, "0:59"},
		{61, "1:01"},
		{3600, "60:00"},
		{math.NaN(), "--:--"},
		{math.Inf(1), "--:--"},
		{-1, "--:--"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.in); got != tt.want {
			t.Errorf("formatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	if got := progressPercent(30, 60); got != 0.5 {
		t.Errorf("got %v", got)
	}
	if got := progressPercent(90, 60); got != 1 {
		t.Errorf("got %v", got)
	}
	if got := progressPercent(10, math.NaN()); got != 0 {
		t.Errorf("got %v", got)
	}
}

func TestRegionLine(t *testing.T) {
	a, b := 10.0, 20.0
	tests := []struct {
		name   string
		region abloop.Region
		want   string
	}{
		{"empty", abloop.Region{}, ""},
		{"point a", abloop.Region{A: &a}, "  A        "},
		{"active", abloop.Region{A: &a, B: &b}, "  A─B      "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := regionLine(11, 50, tt.region); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrackStatus(t *testing.T) {
	list := []attachment.Attachment{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	tests := []struct {
		snap player.Snapshot
		want string
	}{
		{player.Snapshot{Loading: true}, "Loading attachments…"},
		{player.Snapshot{}, "No audio attachments"},
		{player.Snapshot{Attachments: list, Index: 1, Loading: true}, "Loading 2nd of 3…"},
		{player.Snapshot{Attachments: list, Index: 2, Loaded: true}, "Track 3 of 3"},
	}
	for _, tt := range tests {
		if got := trackStatus(tt.snap); got != tt.want {
			t.Errorf("trackStatus() = %q, want %q", got, tt.want)
		}
	}
}

func TestControlsLine(t *testing.T) {
	a, b := 5.0, 65.0
	s := player.Snapshot{
		Loaded:     true,
		Pitch:      -2,
		Tempo:      0.75,
		Loop:       abloop.ButtonActive,
		LoopRegion: abloop.Region{A: &a, B: &b},
	}
	out := controlsLine(s)
	for _, want := range []string{"pitch -2 st", "tempo 0.75x", "A|B 0:05-1:05", "Clear A|B repeat"} {
		if !strings.Contains(out, want) {
			t.Errorf("controls line %q missing %q", out, want)
		}
	}
}
