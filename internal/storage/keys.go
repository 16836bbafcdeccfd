package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/attachment"
)

// Keys used by the player.
const (
	KeyAPIKey      = "apikey"
	KeyToken       = "token"
	PitchKeyPrefix = "pitch:"
)

// LoadAPIKey returns the board's API key, or "" when none is stored.
func LoadAPIKey(ctx context.Context, s Store) (string, error) {
	v, _, err := s.Get(ctx, ScopeBoard, Shared, KeyAPIKey)
	return v, err
}

// SaveAPIKey stores the board's API key.
func SaveAPIKey(ctx context.Context, s Store, key string) error {
	return s.Set(ctx, ScopeBoard, Shared, KeyAPIKey, key)
}

// LoadToken returns the member's token, or "" when none is stored.
func LoadToken(ctx context.Context, s Store) (string, error) {
	v, _, err := s.Get(ctx, ScopeMember, Private, KeyToken)
	return v, err
}

// SaveToken stores the member's token.
func SaveToken(ctx context.Context, s Store, token string) error {
	return s.Set(ctx, ScopeMember, Private, KeyToken, token)
}

// ClearToken removes the member's token.
func ClearToken(ctx context.Context, s Store) error {
	return s.Remove(ctx, ScopeMember, Private, KeyToken)
}

// PitchKey returns the preference key for a's pitch. ok is false when a
// lacks an id or card id.
func PitchKey(a attachment.Attachment) (key string, ok bool) {
	if a.ID == "" || a.CardID == "" {
		return "", false
	}
	return PitchKeyPrefix + a.CardID + ":" + a.ID, true
}

// Preferences stores per-attachment playback preferences.
type Preferences struct {
	Store Store
}

// LoadPitch returns the stored pitch for a. Missing, unreadable and
// malformed values report ok false.
func (p Preferences) LoadPitch(ctx context.Context, a attachment.Attachment) (semitones float64, ok bool) {
	key, ok := PitchKey(a)
	if !ok || p.Store == nil {
		return 0, false
	}
	raw, found, err := p.Store.Get(ctx, ScopeBoard, Shared, key)
	if err != nil {
		log.Warn("Failed to load pitch preference", "key", key, "err", err)
		return 0, false
	}
	if !found {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn("Ignoring malformed pitch preference", "key", key, "value", raw)
		return 0, false
	}
	return v, true
}

// SavePitch stores the pitch for a. Attachments without a key are skipped.
func (p Preferences) SavePitch(ctx context.Context, a attachment.Attachment, semitones float64) error {
	key, ok := PitchKey(a)
	if !ok || p.Store == nil {
		return nil
	}
	value := strconv.FormatFloat(semitones, 'f', -1, 64)
	if err := p.Store.Set(ctx, ScopeBoard, Shared, key, value); err != nil {
		return fmt.Errorf("saving pitch preference: %w", err)
	}
	return nil
}
