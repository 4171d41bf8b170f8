//go:build !cgo

package automation

import (
	"log/slog"
	"sync"
	"time"

	"lightbox/frame"
	"lightbox/params"
)

var stubWarnOnce sync.Once

// audio_level stub for builds without CGO: renders a black canvas and
// logs once.
func newAudioLevel(w, h int) frame.Generator {
	stubWarnOnce.Do(func() {
		slog.Warn("audio_level: audio support is disabled in this build (requires CGO)")
	})
	return func(_ time.Duration, _ int, _ params.Set) frame.Frame {
		return frame.New(w, h)
	}
}
