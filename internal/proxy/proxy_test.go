package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dgnsrekt/trello-player/internal/cache"
)

func TestOriginMatches(t *testing.T) {
	tests := []struct {
		origin string
		domain string
		want   bool
	}{
		{"https://example.com", "example.com", true},
		{"https://app.example.com", "example.com", true},
		{"https://app.example.com", "*.example.com", true},
		{"https://example.com:8443", "example.com", true},
		{"https://badexample.com", "example.com", false},
		{"https://example.com.evil.io", "example.com", false},
		{"null", "example.com", false},
		{"example.com", "example.com", true},
		{"https://example.com", "", false},
	}
	for _, tt := range tests {
		if got := OriginMatches(tt.origin, tt.domain); got != tt.want {
			t.Errorf("OriginMatches(%q, %q) = %v, want %v", tt.origin, tt.domain, got, tt.want)
		}
	}
}

func TestNormalizeOrigins(t *testing.T) {
	got := normalizeOrigins([]string{" a.com ", "", "b.com"})
	if strings.Join(got, ",") != "a.com,b.com" {
		t.Errorf("unexpected origins %v", got)
	}
	if got := normalizeOrigins([]string{" ", ""}); len(got) != 1 || got[0] != DefaultAllowedOrigin {
		t.Errorf("expected default origin, got %v", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ALLOWED_ORIGIN_DOMAIN", "trello.com, power-up.example.com,")
	t.Setenv("PROXY_LISTEN", ":9999")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if strings.Join(cfg.AllowedOrigins, ",") != "trello.com,power-up.example.com" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func newProxy(t *testing.T) (proxy, upstream *httptest.Server) {
	t.Helper()
	upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/redirect":
			http.Redirect(w, r, "/file.mp3", http.StatusFound)
		case "/file.mp3":
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Header().Set("X-Auth-Seen", r.Header.Get("Authorization"))
			io.WriteString(w, "ID3audio") //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	srv := New(Config{AllowedOrigins: []string{"trello.com"}})
	proxy = httptest.NewServer(srv.Handler())
	t.Cleanup(proxy.Close)
	return proxy, upstream
}

func proxyURL(proxy, target string) string {
	return proxy + "/?url=" + url.QueryEscape(target)
}

func TestForbidden(t *testing.T) {
	proxy, upstream := newProxy(t)

	tests := []struct {
		name   string
		url    string
		origin string
	}{
		{"missing url", proxy.URL + "/", "https://trello.com"},
		{"missing origin", proxyURL(proxy.URL, upstream.URL+"/file.mp3"), ""},
		{"foreign origin", proxyURL(proxy.URL, upstream.URL+"/file.mp3"), "https://evil.io"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close() //nolint:errcheck
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusForbidden || string(body) != "Forbidden" {
				t.Errorf("got %d %q", resp.StatusCode, body)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	proxy, upstream := newProxy(t)

	req, _ := http.NewRequest(http.MethodOptions, proxyURL(proxy.URL, upstream.URL+"/file.mp3"), nil)
	req.Header.Set("Origin", "https://app.trello.com")
	req.Header.Set("Access-Control-Request-Headers", "x-trello-auth")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := map[string]string{
		"Access-Control-Allow-Methods": "GET,HEAD,POST,OPTIONS",
		"Access-Control-Max-Age":       "86400",
		"Access-Control-Allow-Origin":  "https://app.trello.com",
		"Access-Control-Allow-Headers": "x-trello-auth",
	}
	for k, v := range want {
		if got := resp.Header.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}

	req.Header.Del("Access-Control-Request-Headers")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close() //nolint:errcheck
	if got := resp2.Header.Get("Access-Control-Allow-Headers"); got != "*" {
		t.Errorf("expected wildcard allow headers, got %q", got)
	}
}

func TestForwarding(t *testing.T) {
	proxy, upstream := newProxy(t)

	req, _ := http.NewRequest(http.MethodGet, proxyURL(proxy.URL, upstream.URL+"/redirect"), nil)
	req.Header.Set("Origin", "https://trello.com")
	req.Header.Set(AuthHeader, `OAuth oauth_consumer_key="k", oauth_token="t"`)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || string(body) != "ID3audio" {
		t.Fatalf("got %d %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("X-Auth-Seen"); got != `OAuth oauth_consumer_key="k", oauth_token="t"` {
		t.Errorf("upstream saw Authorization %q", got)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "https://trello.com" || resp.Header.Get("Vary") != "Origin" {
		t.Errorf("missing CORS headers: %v", resp.Header)
	}
	if resp.Header.Get("Content-Type") != "audio/mpeg" {
		t.Errorf("content type not copied: %q", resp.Header.Get("Content-Type"))
	}
}

func TestUpstreamStatusIsPassedThrough(t *testing.T) {
	proxy, upstream := newProxy(t)

	req, _ := http.NewRequest(http.MethodGet, proxyURL(proxy.URL, upstream.URL+"/missing"), nil)
	req.Header.Set("Origin", "https://trello.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUpstreamFailure(t *testing.T) {
	proxy, _ := newProxy(t)

	req, _ := http.NewRequest(http.MethodGet, proxyURL(proxy.URL, "http://127.0.0.1:1/file.mp3"), nil)
	req.Header.Set("Origin", "https://trello.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusInternalServerError || !strings.HasPrefix(string(body), "Proxy fetch error: ") {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
}

func TestProxyFetcherRoundTrip(t *testing.T) {
	proxy, upstream := newProxy(t)
	creds := func() (string, string) { return "k", "t" }

	f := cache.NewProxyFetcher(proxy.URL+"/", creds)
	f.Origin = "https://power-up.trello.com"
	blob, err := f.Fetch(context.Background(), upstream.URL+"/file.mp3")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(blob.Data) != "ID3audio" || blob.ContentType != "audio/mpeg" {
		t.Errorf("unexpected blob %+v", blob)
	}

	f.Origin = ""
	var fe *cache.FetchError
	if _, err := f.Fetch(context.Background(), upstream.URL+"/file.mp3"); !errors.As(err, &fe) || fe.Status != http.StatusForbidden {
		t.Errorf("expected 403 without origin, got %v", err)
	}
}

func TestConfigWithEnv(t *testing.T) {
	base := Config{Listen: ":1234", AllowedOrigins: []string{"trello.com"}}

	got, err := base.WithEnv()
	if err != nil {
		t.Fatal(err)
	}
	if got.Listen != ":1234" || strings.Join(got.AllowedOrigins, ",") != "trello.com" {
		t.Errorf("unset variables should keep the base config, got %+v", got)
	}

	t.Setenv("ALLOWED_ORIGIN_DOMAIN", "example.com")
	got, err = base.WithEnv()
	if err != nil {
		t.Fatal(err)
	}
	if got.Listen != ":1234" || strings.Join(got.AllowedOrigins, ",") != "example.com" {
		t.Errorf("expected origins from env, got %+v", got)
	}
}
