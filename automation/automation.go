// Package automation provides the built-in procedural frame sources.
// Every pattern is a pure function of elapsed time, frame index and the
// live parameter snapshot, so patterns restart cleanly and need no
// locking when called from the render loop.
package automation

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/exp/maps"

	"lightbox/frame"
)

// DefaultInterval is the nominal frame interval for procedural
// sources (30 FPS).
const DefaultInterval = 33 * time.Millisecond

type factory func(w, h int) frame.Generator

var registry = map[string]factory{
	"rainbow":      newRainbow,
	"color_wave":   newColorWave,
	"plasma":       newPlasma,
	"breathe":      newBreathe,
	"strobe":       newStrobe,
	"checkerboard": newCheckerboard,
	"sparkle":      newSparkle,
	"audio_level":  newAudioLevel,
}

// New builds the named automation as a frame source rendering at the
// given canvas size. Unknown names map to frame.ErrNotFound so the
// control surface can distinguish them from real failures.
func New(id string, w, h int) (frame.Source, error) {
	fac, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("automation %q: %w", id, frame.ErrNotFound)
	}
	return frame.NewProcedural(id, w, h, DefaultInterval, fac(w, h)), nil
}

// List returns the sorted names of all registered automations.
func List() []string {
	names := maps.Keys(registry)
	sort.Strings(names)
	return names
}

// Resolver adapts New to the library's fallback signature for a fixed
// canvas size.
func Resolver(w, h int) frame.ResolveFunc {
	return func(id string) (frame.Source, error) {
		return New(id, w, h)
	}
}
