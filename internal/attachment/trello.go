package attachment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the Trello REST endpoint.
const DefaultAPIURL = "https://api.trello.com"

var (
	// ErrNoList is returned when no list id is configured.
	ErrNoList = errors.New("no trello list configured")

	// ErrNoCredentials is returned when the key or token is missing.
	ErrNoCredentials = errors.New("missing trello api key or token")
)

// Credentials supplies the API key and member token at request time.
type Credentials func() (key, token string)

// StatusError reports a non-2xx response from the Trello API.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("trello responded with status %d", e.Status)
}

type trelloCard struct {
	ID          string       `json:"id"`
	Attachments []Attachment `json:"attachments"`
}

// TrelloSource lists the audio attachments of every card on one list.
type TrelloSource struct {
	BaseURL     string
	ListID      string
	Credentials Credentials
	Client      *http.Client

	limiter *rate.Limiter
	group   singleflight.Group
}

// NewTrelloSource creates a source for listID. rps bounds outgoing API
// calls per second; zero disables limiting.
func NewTrelloSource(baseURL, listID string, creds Credentials, rps float64) *TrelloSource {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &TrelloSource{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		ListID:      listID,
		Credentials: creds,
		Client:      &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(limit, 1),
	}
}

// Attachments fetches the list's cards and returns their playable
// attachments stamped with the owning card id. Concurrent calls share one
// request.
func (s *TrelloSource) Attachments(ctx context.Context) ([]Attachment, error) {
	v, err, _ := s.group.Do(s.ListID, func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	// callers own their slice
	shared := v.([]Attachment)
	out := make([]Attachment, len(shared))
	copy(out, shared)
	return out, nil
}

func (s *TrelloSource) fetch(ctx context.Context) ([]Attachment, error) {
	if s.ListID == "" {
		return nil, ErrNoList
	}
	key, token := "", ""
	if s.Credentials != nil {
		key, token = s.Credentials()
	}
	if key == "" || token == "" {
		return nil, ErrNoCredentials
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("attachments", "true")
	q.Set("key", key)
	q.Set("token", token)
	endpoint := fmt.Sprintf("%s/1/lists/%s/cards?%s", s.BaseURL, url.PathEscape(s.ListID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to list cards: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode}
	}

	var cards []trelloCard
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("unable to decode cards: %w", err)
	}

	var out []Attachment
	for _, card := range cards {
		for _, a := range card.Attachments {
			if !IsSupported(a) {
				continue
			}
			a.CardID = card.ID
			out = append(out, a)
		}
	}
	log.Debug("Fetched attachments", "list", s.ListID, "cards", len(cards), "tracks", len(out))
	return out, nil
}
