// Package library builds the album index the radio plays from: a scan of a
// local directory tree where each track belongs to the album named after its
// parent directory.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/1mb-dev/homespin/internal/audio"
)

// ErrNoTracks reports a scan that found no playable files.
var ErrNoTracks = errors.New("no audio tracks found under library root")

// Track identifies one playable file. Immutable once discovered.
type Track struct {
	Album string `json:"album"`
	Path  string `json:"path"`
	Name  string `json:"name"`
}

// DisplayName returns the track name without its file extension.
func (t Track) DisplayName() string {
	return strings.TrimSuffix(t.Name, filepath.Ext(t.Name))
}

// Index maps album names to their ordered tracks. Built once by Scan and
// read-only afterwards; a rebuild replaces the whole index.
type Index struct {
	root   string
	albums map[string][]Track
	names  []string
	count  int
}

// Scan walks root and collects every file with a recognized audio extension.
// The album name is the file's parent directory name; tracks within an album
// keep walk (lexical) order. Directories without matching files are omitted.
func Scan(root string, exts []string) (*Index, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", root)
	}
	if len(exts) == 0 {
		exts = audio.DefaultExtensions
	}

	albums := make(map[string][]Track)
	count := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !audio.Recognized(path, exts) {
			return nil
		}
		album := filepath.Base(filepath.Dir(path))
		albums[album] = append(albums[album], Track{
			Album: album,
			Path:  path,
			Name:  d.Name(),
		})
		count++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if count == 0 {
		return nil, ErrNoTracks
	}

	names := lo.Keys(albums)
	sort.Strings(names)

	return &Index{root: root, albums: albums, names: names, count: count}, nil
}

// Root returns the directory the index was scanned from.
func (ix *Index) Root() string {
	return ix.root
}

// Albums returns album names in sorted order.
func (ix *Index) Albums() []string {
	out := make([]string, len(ix.names))
	copy(out, ix.names)
	return out
}

// Tracks returns the ordered tracks of one album.
func (ix *Index) Tracks(album string) []Track {
	ts := ix.albums[album]
	out := make([]Track, len(ts))
	copy(out, ts)
	return out
}

// All returns every track, grouped by album in sorted album order.
func (ix *Index) All() []Track {
	out := make([]Track, 0, ix.count)
	for _, name := range ix.names {
		out = append(out, ix.albums[name]...)
	}
	return out
}

// Len returns the total track count across all albums.
func (ix *Index) Len() int {
	return ix.count
}

// Find matches free text against track display names, case-insensitively and
// in either substring direction. First hit in album/track order wins. Built
// for interpreting a language model's answer, so it tolerates surrounding
// prose around the title.
func (ix *Index) Find(answer string) (Track, bool) {
	ans := strings.ToLower(strings.TrimSpace(answer))
	if ans == "" {
		return Track{}, false
	}
	for _, name := range ix.names {
		for _, t := range ix.albums[name] {
			display := strings.ToLower(t.DisplayName())
			if display == "" {
				continue
			}
			if strings.Contains(ans, display) || strings.Contains(display, ans) {
				return t, true
			}
		}
	}
	return Track{}, false
}
