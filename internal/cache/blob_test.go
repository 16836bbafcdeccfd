package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/trello-player/internal/attachment"
)

// gatedFetcher blocks each URL until released and counts calls.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	gates   map[string]chan struct{}
	failing map[string]error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		calls:   make(map[string]int),
		gates:   make(map[string]chan struct{}),
		failing: make(map[string]error),
	}
}

func (f *gatedFetcher) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[url]
	if !ok {
		ch = make(chan struct{})
		f.gates[url] = ch
	}
	return ch
}

func (f *gatedFetcher) release(url string) {
	close(f.gate(url))
}

func (f *gatedFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[url] = err
}

func (f *gatedFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *gatedFetcher) Fetch(ctx context.Context, url string) (Blob, error) {
	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()

	select {
	case <-f.gate(url):
	case <-ctx.Done():
		return Blob{}, ctx.Err()
	}

	f.mu.Lock()
	err := f.failing[url]
	f.mu.Unlock()
	if err != nil {
		return Blob{}, err
	}
	return Blob{Data: []byte("audio:" + url)}, nil
}

// instantFetcher resolves every URL immediately.
type instantFetcher struct {
	calls atomic.Int32
}

func (f *instantFetcher) Fetch(_ context.Context, url string) (Blob, error) {
	f.calls.Add(1)
	return Blob{Data: []byte(url)}, nil
}

func track(i int) attachment.Attachment {
	return attachment.Attachment{
		ID:  fmt.Sprintf("att%d", i),
		URL: fmt.Sprintf("https://x/%d.mp3", i),
	}
}

func TestResolveSharesInFlightFetch(t *testing.T) {
	f := newGatedFetcher()
	c := NewBlobCache(f)
	defer c.Close() //nolint:errcheck

	a := track(1)
	results := make(chan Blob, 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Resolve(context.Background(), a)
			if err != nil {
				t.Errorf("Resolve failed: %v", err)
			}
			results <- b
		}()
	}

	// let every caller attach to the entry before releasing
	deadline := time.Now().Add(time.Second)
	for c.Stats().Hits+c.Stats().Misses < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	f.release(a.URL)
	wg.Wait()
	close(results)

	for b := range results {
		if string(b.Data) != "audio:"+a.URL {
			t.Errorf("unexpected blob %q", b.Data)
		}
	}
	if n := f.count(a.URL); n != 1 {
		t.Errorf("expected 1 fetch, got %d", n)
	}
}

func TestResolveFailureSelfEvicts(t *testing.T) {
	f := newGatedFetcher()
	c := NewBlobCache(f)
	defer c.Close() //nolint:errcheck

	a := track(1)
	boom := errors.New("boom")
	f.fail(a.URL, boom)
	f.release(a.URL)

	if _, err := c.Resolve(context.Background(), a); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Contains(a.ID) {
		t.Error("failed entry should be evicted")
	}

	f.fail(a.URL, nil)
	if _, err := c.Resolve(context.Background(), a); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if n := f.count(a.URL); n != 2 {
		t.Errorf("expected retry to fetch again, got %d fetches", n)
	}
}

func TestResolveCallerCancelDoesNotAbortFetch(t *testing.T) {
	f := newGatedFetcher()
	c := NewBlobCache(f)
	defer c.Close() //nolint:errcheck

	a := track(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Resolve(ctx, a); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	f.release(a.URL)
	b, err := c.Resolve(context.Background(), a)
	if err != nil || len(b.Data) == 0 {
		t.Fatalf("expected cached blob after abandoned wait, got %v", err)
	}
	if n := f.count(a.URL); n != 1 {
		t.Errorf("expected the original fetch to be reused, got %d fetches", n)
	}
}

func TestResolveRejectsEmptyID(t *testing.T) {
	c := NewBlobCache(&instantFetcher{})
	if _, err := c.Resolve(context.Background(), attachment.Attachment{}); !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("expected ErrInvalidAttachment, got %v", err)
	}
}

func TestTrimBound(t *testing.T) {
	c := NewBlobCache(&instantFetcher{}, WithLimit(3))
	defer c.Close() //nolint:errcheck

	for i := 0; i < 10; i++ {
		if _, err := c.Resolve(context.Background(), track(i)); err != nil {
			t.Fatalf("Resolve(%d) failed: %v", i, err)
		}
		if c.Len() > 3 {
			t.Fatalf("cache size %d exceeds limit after %d resolves", c.Len(), i+1)
		}
	}

	keys := c.Keys()
	want := []string{"att7", "att8", "att9"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
}

func TestTrimSkipsPreserved(t *testing.T) {
	c := NewBlobCache(&instantFetcher{}, WithLimit(2))
	defer c.Close() //nolint:errcheck

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.Resolve(ctx, track(i)); err != nil {
			t.Fatal(err)
		}
	}

	// att0 is oldest but preserved, so att1 goes instead
	if _, err := c.Resolve(ctx, track(2), "att0"); err != nil {
		t.Fatal(err)
	}
	if !c.Contains("att0") || c.Contains("att1") || !c.Contains("att2") {
		t.Errorf("unexpected residency: %v", c.Keys())
	}

	// everything preserved: the cache may exceed its limit
	if _, err := c.Resolve(ctx, track(3), "att0", "att2"); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Errorf("expected preserved overflow to 3 entries, got %v", c.Keys())
	}
	if c.Len() > 2 {
		for _, id := range c.Keys() {
			if id != "att0" && id != "att2" && id != "att3" {
				t.Errorf("non-preserved entry %s kept over the limit", id)
			}
		}
	}
}

func TestPrefetchAdjacent(t *testing.T) {
	f := &instantFetcher{}
	c := NewBlobCache(f)
	defer c.Close() //nolint:errcheck

	list := []attachment.Attachment{track(0), track(1), track(2), track(3)}
	c.Prefetch(list, 1)

	for _, id := range []string{"att0", "att2"} {
		if !c.Contains(id) {
			t.Errorf("expected %s to be prefetched", id)
		}
	}
	if c.Contains("att1") || c.Contains("att3") {
		t.Errorf("unexpected prefetch: %v", c.Keys())
	}

	// edges ignore out-of-range neighbours
	c.Clear()
	c.Prefetch(list, 3)
	if c.Len() != 1 || !c.Contains("att2") {
		t.Errorf("expected only att2 prefetched, got %v", c.Keys())
	}
}

func TestProxyFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://trello.com/a b.mp3" {
			t.Errorf("unexpected url param %q", got)
		}
		want := `OAuth oauth_consumer_key="key", oauth_token="tok"`
		if got := r.Header.Get(AuthHeader); got != want {
			t.Errorf("auth header = %q, want %q", got, want)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	f := NewProxyFetcher(srv.URL, func() (string, string) { return "key", "tok" })
	b, err := f.Fetch(context.Background(), "https://trello.com/a b.mp3")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(b.Data) != "ID3" || b.ContentType != "audio/mpeg" {
		t.Errorf("unexpected blob %+v", b)
	}

	t.Run("non-2xx", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer bad.Close()

		f := NewProxyFetcher(bad.URL, func() (string, string) { return "key", "tok" })
		_, err := f.Fetch(context.Background(), "https://trello.com/a b.mp3")
		var fe *FetchError
		if !errors.As(err, &fe) || fe.Status != http.StatusBadGateway {
			t.Errorf("expected FetchError 502, got %v", err)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		f := NewProxyFetcher(srv.URL, func() (string, string) { return "key", "" })
		if _, err := f.Fetch(context.Background(), "x"); !errors.Is(err, ErrMissingToken) {
			t.Errorf("expected ErrMissingToken, got %v", err)
		}
	})
}
