package commentary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1mb-dev/homespin/internal/cache"
)

// countingSource records calls and can be told to fail.
type countingSource struct {
	calls    int
	suggests int
	fail     bool
}

func (s *countingSource) Commentary(_ context.Context, album, track string) (string, error) {
	s.calls++
	if s.fail {
		return "", errors.New("model down")
	}
	return "line for " + album + "/" + track, nil
}

func (s *countingSource) SuggestTrack(_ context.Context, _, _, _ string) (string, error) {
	s.suggests++
	return "some title", nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(time.Minute)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachedHitsOncePerTrack(t *testing.T) {
	src := &countingSource{}
	cached := NewCached(src, newTestCache(t))

	for range 3 {
		text, err := cached.Commentary(context.Background(), "A", "t1")
		if err != nil {
			t.Fatalf("Commentary failed: %v", err)
		}
		if text != "line for A/t1" {
			t.Errorf("text = %q", text)
		}
	}
	if src.calls != 1 {
		t.Errorf("underlying source called %d times, want 1", src.calls)
	}

	// Different track misses
	if _, err := cached.Commentary(context.Background(), "A", "t2"); err != nil {
		t.Fatalf("Commentary failed: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("underlying source called %d times, want 2", src.calls)
	}
}

func TestCachedNeverCachesFailures(t *testing.T) {
	src := &countingSource{fail: true}
	cached := NewCached(src, newTestCache(t))

	for range 2 {
		if _, err := cached.Commentary(context.Background(), "A", "t1"); err == nil {
			t.Fatal("expected error from failing source")
		}
	}
	if src.calls != 2 {
		t.Errorf("failing source called %d times, want 2 (errors are not cached)", src.calls)
	}
}

func TestCachedSuggestPassesThrough(t *testing.T) {
	src := &countingSource{}
	cached := NewCached(src, newTestCache(t))

	for range 3 {
		if _, err := cached.SuggestTrack(context.Background(), "mood", "A", "t1"); err != nil {
			t.Fatalf("SuggestTrack failed: %v", err)
		}
	}
	if src.suggests != 3 {
		t.Errorf("suggest called %d times, want 3 (uncached)", src.suggests)
	}
}
