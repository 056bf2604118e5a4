package commentary

import (
	"context"

	"github.com/1mb-dev/homespin/internal/cache"
)

// Cached wraps a Source with a TTL cache keyed by (album, track), so a track
// replayed within the window does not re-hit the model. Failures are never
// cached; mood suggestions pass through uncached.
type Cached struct {
	src   Source
	cache *cache.Cache
}

// NewCached wraps src with the given cache.
func NewCached(src Source, c *cache.Cache) *Cached {
	return &Cached{src: src, cache: c}
}

// Commentary returns a cached line when one is fresh, otherwise asks the
// underlying source and stores the answer.
func (c *Cached) Commentary(ctx context.Context, album, track string) (string, error) {
	key := cache.CommentaryKey(album, track)
	if v, ok := c.cache.Get(key); ok {
		if text, ok := v.(string); ok {
			return text, nil
		}
	}

	text, err := c.src.Commentary(ctx, album, track)
	if err != nil {
		return "", err
	}
	_ = c.cache.Set(key, text)
	return text, nil
}

// SuggestTrack is mood-dependent, so it always passes through.
func (c *Cached) SuggestTrack(ctx context.Context, mood, album, track string) (string, error) {
	return c.src.SuggestTrack(ctx, mood, album, track)
}
