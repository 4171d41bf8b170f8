//go:build cgo

package automation

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"lightbox/frame"
	"lightbox/params"
)

const (
	audioSampleRate      = 44100
	audioFramesPerBuffer = 1024
	audioMinDB           = -60.0
	audioMaxDB           = -10.0
)

// levelMeter reads the default audio input and tracks the current
// level as a fraction between the configured dB floor and ceiling.
type levelMeter struct {
	mu     sync.Mutex
	level  float64
	stream *portaudio.Stream
}

var (
	meterOnce sync.Once
	meter     *levelMeter
)

func sharedMeter() *levelMeter {
	meterOnce.Do(func() {
		meter = &levelMeter{}
		if err := meter.start(); err != nil {
			slog.Warn("audio_level: could not open audio input", "error", err)
		}
	})
	return meter
}

func (m *levelMeter) start() error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	buf := make([]float32, audioFramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, audioSampleRate, len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}
	m.stream = stream

	go func() {
		for {
			if err := stream.Read(); err != nil {
				slog.Warn("audio_level: read failed, stopping meter", "error", err)
				return
			}
			var sum float64
			for _, s := range buf {
				sum += float64(s) * float64(s)
			}
			rms := math.Sqrt(sum / float64(len(buf)))
			db := 20 * math.Log10(rms+1e-9)
			lvl := (db - audioMinDB) / (audioMaxDB - audioMinDB)
			lvl = math.Max(0, math.Min(1, lvl))

			m.mu.Lock()
			m.level = lvl
			m.mu.Unlock()
		}
	}()
	return nil
}

func (m *levelMeter) current() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// audio_level: a VU meter filling the canvas bottom-up, green through
// yellow to red. The generator stays pure over its inputs; the audio
// level is live external input, like wall-clock time is for the rest.
func newAudioLevel(w, h int) frame.Generator {
	return func(_ time.Duration, _ int, _ params.Set) frame.Frame {
		f := frame.New(w, h)
		lvl := sharedMeter().current()
		lit := int(math.Round(lvl * float64(h)))
		for row := 0; row < lit; row++ {
			y := h - 1 - row
			pos := float64(row) / float64(h)
			var r, g byte
			switch {
			case pos < 0.6:
				g = 255
			case pos < 0.85:
				r, g = 255, 255
			default:
				r = 255
			}
			for x := 0; x < w; x++ {
				f.Set(x, y, r, g, 0)
			}
		}
		return f
	}
}
