// Package auth checks, validates and obtains the member token the player
// reads attachments with.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/storage"
)

// Endpoints.
const (
	DefaultAPIURL     = "https://api.trello.com"
	AuthorizeEndpoint = "https://trello.com/1/authorize"
)

var (
	// ErrAuthRequired means no valid token is stored and the user must
	// authorize.
	ErrAuthRequired = errors.New("authorization required")
	// ErrMissingAPIKey is returned when authorizing without an API key.
	ErrMissingAPIKey = errors.New("API key is required")
	// ErrInvalidToken is returned for a token of the wrong shape.
	ErrInvalidToken = errors.New("invalid token")
	// ErrValidationFailed is returned when the API rejects a token.
	ErrValidationFailed = errors.New("failed to validate Trello authorization")
)

var tokenPattern = regexp.MustCompile(`^[a-zA-Z0-9]{64,80}$`)

// IsValidToken reports whether token has the shape of a member token.
func IsValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// TokenValidator checks a key and token against the API.
type TokenValidator interface {
	Validate(ctx context.Context, key, token string) bool
}

// Validator validates tokens by fetching the member they belong to.
type Validator struct {
	BaseURL string
	Client  *http.Client
}

// NewValidator creates a Validator for the API at baseURL.
func NewValidator(baseURL string) *Validator {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Validator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Validate reports whether the API accepts key and token. Network errors
// count as rejection.
func (v *Validator) Validate(ctx context.Context, key, token string) bool {
	if key == "" || token == "" {
		return false
	}
	q := url.Values{"key": {key}, "token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/1/members/me?"+q.Encode(), nil)
	if err != nil {
		return false
	}
	resp, err := v.Client.Do(req)
	if err != nil {
		log.Debug("Token validation failed", "err", err)
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	return resp.StatusCode == http.StatusOK
}

// AuthorizeURL builds the authorization page URL for key. The token is
// posted back to returnURL.
func AuthorizeURL(key, returnURL string) string {
	q := url.Values{}
	q.Set("expiration", "never")
	q.Set("scope", "read")
	q.Set("key", key)
	q.Set("callback_method", "postMessage")
	q.Set("return_url", returnURL)
	return AuthorizeEndpoint + "?" + q.Encode()
}

// Window is the popup an authorization flow opened.
type Window interface {
	Close() error
}

// AuthorizeOptions are handed to an Authorizer.
type AuthorizeOptions struct {
	// ValidToken reports whether a candidate token is worth returning.
	ValidToken func(string) bool
	// WindowCallback receives the popup once it is open.
	WindowCallback func(Window)
}

// Authorizer runs the host's authorization flow and returns the token.
type Authorizer interface {
	Authorize(ctx context.Context, authURL string, opts AuthorizeOptions) (string, error)
}

// Manager owns the stored credentials.
type Manager struct {
	Store     storage.Store
	Validator TokenValidator
	ReturnURL string

	mu    sync.RWMutex
	key   string
	token string
}

// NewManager creates a Manager.
func NewManager(store storage.Store, validator TokenValidator) *Manager {
	return &Manager{Store: store, Validator: validator, ReturnURL: "http://localhost/"}
}

// Credentials returns the current API key and token. It is safe to call
// from any goroutine.
func (m *Manager) Credentials() (key, token string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key, m.token
}

// Init loads and validates the stored credentials. A stored token the API
// rejects is cleared. ErrAuthRequired means the auth form must be shown.
func (m *Manager) Init(ctx context.Context) error {
	key, err := storage.LoadAPIKey(ctx, m.Store)
	if err != nil {
		return fmt.Errorf("loading API key: %w", err)
	}
	key = strings.TrimSpace(key)
	m.setKey(key)

	token, err := storage.LoadToken(ctx, m.Store)
	if err != nil {
		return fmt.Errorf("loading token: %w", err)
	}
	if token != "" && m.Validator.Validate(ctx, key, token) {
		m.setToken(token)
		log.Debug("Stored token is valid")
		return nil
	}
	if token != "" {
		log.Warn("Stored token was rejected, clearing it")
		if err := storage.ClearToken(ctx, m.Store); err != nil {
			log.Error("Failed to clear token", "err", err)
		}
	}
	m.setToken("")
	return ErrAuthRequired
}

// SetAPIKey stores a new API key.
func (m *Manager) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	m.setKey(key)
	if err := storage.SaveAPIKey(ctx, m.Store, key); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	return nil
}

// Authorize saves key, runs the authorization flow and stores the token
// it returns once the API accepts it.
func (m *Manager) Authorize(ctx context.Context, key string, a Authorizer) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingAPIKey
	}
	if err := m.SetAPIKey(ctx, key); err != nil {
		return err
	}

	var popup Window
	opts := AuthorizeOptions{
		ValidToken:     IsValidToken,
		WindowCallback: func(w Window) { popup = w },
	}
	defer func() {
		if popup != nil {
			popup.Close() //nolint:errcheck
		}
	}()

	token, err := a.Authorize(ctx, AuthorizeURL(key, m.ReturnURL), opts)
	if err != nil {
		return fmt.Errorf("authorization popup failed: %w", err)
	}
	return m.AcceptToken(ctx, token)
}

// AcceptToken validates token against the stored key and stores it.
func (m *Manager) AcceptToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if !IsValidToken(token) {
		return ErrInvalidToken
	}
	key, _ := m.Credentials()
	if !m.Validator.Validate(ctx, key, token) {
		return ErrValidationFailed
	}
	if err := storage.SaveToken(ctx, m.Store, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	m.setToken(token)
	log.Info("Authorization stored")
	return nil
}

// Logout clears the stored token.
func (m *Manager) Logout(ctx context.Context) error {
	m.setToken("")
	return storage.ClearToken(ctx, m.Store)
}

func (m *Manager) setKey(key string) {
	m.mu.Lock()
	m.key = key
	m.mu.Unlock()
}

func (m *Manager) setToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}
