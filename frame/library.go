package frame

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound reports an id that resolves to neither a media file nor
// a registered procedural source.
var ErrNotFound = errors.New("source not found")

var mediaExtensions = map[string]bool{
	".gif":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ResolveFunc resolves an id to a source outside the media directory,
// typically the procedural automation registry.
type ResolveFunc func(id string) (Source, error)

// Library resolves source ids for the control surface: first against
// files in the media directory, then through the fallback resolver.
type Library struct {
	mediaDir string
	fallback ResolveFunc
}

func NewLibrary(mediaDir string, fallback ResolveFunc) *Library {
	return &Library{mediaDir: mediaDir, fallback: fallback}
}

// Resolve maps an id to a playable source. Media ids are plain file
// names inside the media directory; path separators are rejected so an
// id cannot escape it.
func (l *Library) Resolve(id string) (Source, error) {
	if id == "" {
		return nil, fmt.Errorf("resolve: %w", ErrNotFound)
	}
	if l.mediaDir != "" && id == filepath.Base(id) {
		path := filepath.Join(l.mediaDir, id)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return LoadMedia(path)
		}
	}
	if l.fallback != nil {
		src, err := l.fallback(id)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("resolve %q: %w", id, ErrNotFound)
}

// List returns the sorted ids of all media files with a supported
// extension in the media directory.
func (l *Library) List() ([]string, error) {
	if l.mediaDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(l.mediaDir)
	if err != nil {
		return nil, fmt.Errorf("list media dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if mediaExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
