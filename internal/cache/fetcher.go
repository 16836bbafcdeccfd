package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// AuthHeader is the request header the proxy turns into Authorization.
const AuthHeader = "x-trello-auth"

// Fetcher downloads the content behind a remote attachment URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Blob, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (Blob, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (Blob, error) {
	return f(ctx, url)
}

// ProxyFetcher downloads attachments through the CORS proxy, passing the
// member's OAuth credentials along.
type ProxyFetcher struct {
	ProxyURL    string
	Credentials func() (key, token string)
	Client      *http.Client

	// Origin is sent so the proxy can check it against its allow list.
	Origin string
}

// NewProxyFetcher creates a fetcher for the proxy at proxyURL.
func NewProxyFetcher(proxyURL string, creds func() (key, token string)) *ProxyFetcher {
	return &ProxyFetcher{
		ProxyURL:    proxyURL,
		Credentials: creds,
		Client:      http.DefaultClient,
	}
}

// Fetch implements Fetcher.
func (f *ProxyFetcher) Fetch(ctx context.Context, original string) (Blob, error) {
	key, token := "", ""
	if f.Credentials != nil {
		key, token = f.Credentials()
	}
	if token == "" {
		return Blob{}, ErrMissingToken
	}

	proxied := fmt.Sprintf("%s?url=%s", f.ProxyURL, url.QueryEscape(original))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxied, nil)
	if err != nil {
		return Blob{}, fmt.Errorf("unable to build proxy request: %w", err)
	}
	req.Header.Set(AuthHeader, OAuthHeader(key, token))
	if f.Origin != "" {
		req.Header.Set("Origin", f.Origin)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Blob{}, fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Blob{}, &FetchError{URL: original, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Blob{}, fmt.Errorf("unable to read attachment: %w", err)
	}
	return Blob{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// OAuthHeader formats the Trello OAuth header value.
func OAuthHeader(key, token string) string {
	return fmt.Sprintf(`OAuth oauth_consumer_key="%s", oauth_token="%s"`, key, token)
}
