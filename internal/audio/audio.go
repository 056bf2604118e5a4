package audio

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions lists the file types the playback engine can decode.
var DefaultExtensions = []string{".mp3", ".wav", ".ogg", ".flac"}

// Recognized reports whether path carries one of the given audio
// extensions. Matching is case-insensitive.
func Recognized(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// FindClip locates a short sound clip named name under dir, trying each
// extension in order. The first existing regular file wins.
func FindClip(dir, name string, exts []string) (string, bool) {
	if dir == "" || name == "" {
		return "", false
	}
	for _, ext := range exts {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
