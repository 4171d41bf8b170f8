package frame

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lightbox/params"
)

const stillFrameDuration = time.Second

// MediaSource is a finite, decoded sequence of frames. It is immutable
// once built; playback position lives in the engine, not here.
type MediaSource struct {
	uid       string
	frames    []Frame
	durations []time.Duration
	ends      []time.Duration
	total     time.Duration
	w, h      int
}

// LoadMedia decodes an image file into a MediaSource. Animated GIFs
// keep their per-frame delays; still images become a single frame held
// for one second.
func LoadMedia(path string) (*MediaSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media %s: %w", path, err)
	}
	defer f.Close()

	uid := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".gif") {
		g, err := gif.DecodeAll(f)
		if err != nil {
			return nil, fmt.Errorf("decode gif %s: %w", path, err)
		}
		return fromGIF(uid, g)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return fromImages(uid, []image.Image{img}, []time.Duration{stillFrameDuration}), nil
}

func fromGIF(uid string, g *gif.GIF) (*MediaSource, error) {
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("gif %s: no frames", uid)
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	// GIF frames may be partial updates against the previous canvas, so
	// each one is composited over it; transparent pixels keep whatever
	// the canvas already holds.
	canvas := image.NewRGBA(bounds)
	var restore *image.RGBA
	imgs := make([]image.Image, 0, len(g.Image))
	durs := make([]time.Duration, 0, len(g.Image))
	for i, pal := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			restore = image.NewRGBA(bounds)
			copy(restore.Pix, canvas.Pix)
		}
		draw.Draw(canvas, pal.Bounds(), pal, pal.Bounds().Min, draw.Over)
		snap := image.NewRGBA(bounds)
		copy(snap.Pix, canvas.Pix)
		imgs = append(imgs, snap)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, pal.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}

		d := time.Duration(g.Delay[i]) * 10 * time.Millisecond
		if d <= 0 {
			d = 100 * time.Millisecond
		}
		durs = append(durs, d)
	}
	return fromImages(uid, imgs, durs), nil
}

func fromImages(uid string, imgs []image.Image, durs []time.Duration) *MediaSource {
	b := imgs[0].Bounds()
	w, h := b.Dx(), b.Dy()
	s := &MediaSource{
		uid:       uid,
		frames:    make([]Frame, len(imgs)),
		durations: durs,
		w:         w,
		h:         h,
	}
	for i, img := range imgs {
		fr := New(w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				fr.Set(x, y, byte(r>>8), byte(g>>8), byte(bl>>8))
			}
		}
		s.frames[i] = fr
	}
	s.ends = make([]time.Duration, len(durs))
	for i, d := range durs {
		s.total += d
		s.ends[i] = s.total
	}
	return s
}

// NewMediaSource builds a source from already-decoded frames. All
// frames must share one resolution.
func NewMediaSource(uid string, frames []Frame, durations []time.Duration) (*MediaSource, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("media source %s: no frames", uid)
	}
	if len(frames) != len(durations) {
		return nil, fmt.Errorf("media source %s: %d frames but %d durations", uid, len(frames), len(durations))
	}
	s := &MediaSource{
		uid:       uid,
		frames:    frames,
		durations: durations,
		w:         frames[0].W,
		h:         frames[0].H,
	}
	s.ends = make([]time.Duration, len(frames))
	for i, fr := range frames {
		if fr.W != s.w || fr.H != s.h {
			return nil, fmt.Errorf("media source %s: frame %d is %dx%d, want %dx%d", uid, i, fr.W, fr.H, s.w, s.h)
		}
		s.total += durations[i]
		s.ends[i] = s.total
	}
	return s, nil
}

func (s *MediaSource) UID() string          { return s.uid }
func (s *MediaSource) Size() (int, int)     { return s.w, s.h }
func (s *MediaSource) Frames() int          { return len(s.frames) }
func (s *MediaSource) Total() time.Duration { return s.total }

// FrameDuration reports the average duration so pacing has a nominal
// interval even for GIFs with varying delays.
func (s *MediaSource) FrameDuration() time.Duration {
	return s.total / time.Duration(len(s.frames))
}

func (s *MediaSource) At(elapsed time.Duration, _ params.Set) (Frame, int) {
	if elapsed < 0 {
		elapsed = 0
	}
	for i, end := range s.ends {
		if elapsed < end {
			return s.frames[i], i
		}
	}
	last := len(s.frames) - 1
	return s.frames[last], last
}

// FrameEnd reports the cumulative deadline of the given frame, which
// is what pacing must wait for when per-frame delays are uneven.
func (s *MediaSource) FrameEnd(index int) time.Duration {
	if index < 0 {
		index = 0
	}
	if index >= len(s.ends) {
		return s.total
	}
	return s.ends[index]
}
