// Package attachment describes the audio attachments the player works
// through and the sources that enumerate them.
package attachment

import (
	"context"
	"strings"
)

// SupportedExtensions lists the URL suffixes treated as playable tracks.
var SupportedExtensions = []string{".m4a", ".mp3"}

// Attachment is a remote audio file attached to a card.
type Attachment struct {
	ID     string `json:"id"`
	CardID string `json:"cardId"`
	URL    string `json:"url"`
	Name   string `json:"name"`
}

// Source enumerates the attachments of the current list in host order.
type Source interface {
	Attachments(ctx context.Context) ([]Attachment, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]Attachment, error)

// Attachments calls f(ctx).
func (f SourceFunc) Attachments(ctx context.Context) ([]Attachment, error) {
	return f(ctx)
}

// IsSupported reports whether the attachment URL names a playable format.
func IsSupported(a Attachment) bool {
	url := strings.ToLower(a.URL)
	for _, ext := range SupportedExtensions {
		if strings.HasSuffix(url, ext) {
			return true
		}
	}
	return false
}

// IndexOf returns the index of the attachment with the given id, or -1.
func IndexOf(list []Attachment, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Neighbors returns the ids at index and its two adjacent positions,
// skipping positions outside the list.
func Neighbors(list []Attachment, index int) []string {
	ids := make([]string, 0, 3)
	for _, i := range []int{index, index + 1, index - 1} {
		if i >= 0 && i < len(list) {
			ids = append(ids, list[i].ID)
		}
	}
	return ids
}
