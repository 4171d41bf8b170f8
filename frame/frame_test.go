package frame

import (
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightbox/params"
)

func TestFramePixelAccess(t *testing.T) {
	f := New(4, 2)
	assert.Len(t, f.Pix, 4*2*3)

	f.Set(3, 1, 10, 20, 30)
	r, g, b := f.At(3, 1)
	assert.Equal(t, byte(10), r)
	assert.Equal(t, byte(20), g)
	assert.Equal(t, byte(30), b)
}

func makeFrames(n, w, h int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		fr := New(w, h)
		fr.Set(0, 0, byte(i), 0, 0)
		frames[i] = fr
	}
	return frames
}

func TestMediaSourceAt(t *testing.T) {
	durs := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		100 * time.Millisecond,
	}
	src, err := NewMediaSource("test", makeFrames(3, 2, 2), durs)
	require.NoError(t, err)

	assert.Equal(t, 3, src.Frames())
	assert.Equal(t, 400*time.Millisecond, src.Total())

	snap := params.Defaults()
	_, idx := src.At(0, snap)
	assert.Equal(t, 0, idx)
	_, idx = src.At(150*time.Millisecond, snap)
	assert.Equal(t, 1, idx)
	_, idx = src.At(350*time.Millisecond, snap)
	assert.Equal(t, 2, idx)

	// Past the end clamps to the last frame.
	_, idx = src.At(time.Hour, snap)
	assert.Equal(t, 2, idx)
	_, idx = src.At(-time.Second, snap)
	assert.Equal(t, 0, idx)
}

func TestMediaSourceFrameEnd(t *testing.T) {
	durs := []time.Duration{
		500 * time.Millisecond,
		50 * time.Millisecond,
		50 * time.Millisecond,
	}
	src, err := NewMediaSource("test", makeFrames(3, 2, 2), durs)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, src.FrameEnd(0))
	assert.Equal(t, 550*time.Millisecond, src.FrameEnd(1))
	assert.Equal(t, 600*time.Millisecond, src.FrameEnd(2))

	// Out-of-range indexes clamp.
	assert.Equal(t, 600*time.Millisecond, src.FrameEnd(7))
	assert.Equal(t, 500*time.Millisecond, src.FrameEnd(-1))
}

func TestNewMediaSourceValidation(t *testing.T) {
	_, err := NewMediaSource("x", nil, nil)
	assert.Error(t, err)

	frames := makeFrames(2, 2, 2)
	_, err = NewMediaSource("x", frames, []time.Duration{time.Second})
	assert.Error(t, err)

	frames[1] = New(3, 3)
	_, err = NewMediaSource("x", frames, []time.Duration{time.Second, time.Second})
	assert.Error(t, err)
}

func TestProceduralSource(t *testing.T) {
	var gotIndex int
	gen := func(elapsed time.Duration, index int, snap params.Set) Frame {
		gotIndex = index
		f := New(2, 2)
		f.Set(0, 0, 255, 0, 0)
		return f
	}
	src := NewProcedural("gen", 2, 2, 50*time.Millisecond, gen)

	assert.Equal(t, 0, src.Frames())
	assert.Equal(t, time.Duration(0), src.Total())
	assert.Equal(t, 50*time.Millisecond, src.FrameDuration())

	fr, idx := src.At(275*time.Millisecond, params.Defaults())
	assert.Equal(t, 5, idx)
	assert.Equal(t, 5, gotIndex)
	r, _, _ := fr.At(0, 0)
	assert.Equal(t, byte(255), r)

	assert.Equal(t, 50*time.Millisecond, src.FrameEnd(0))
	assert.Equal(t, 300*time.Millisecond, src.FrameEnd(5))
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadMediaStillImage(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "still.png")

	src, err := LoadMedia(path)
	require.NoError(t, err)
	assert.Equal(t, "still.png", src.UID())
	assert.Equal(t, 1, src.Frames())

	w, h := src.Size()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)

	fr, _ := src.At(0, params.Defaults())
	r, g, b := fr.At(1, 1)
	assert.Equal(t, byte(200), r)
	assert.Equal(t, byte(100), g)
	assert.Equal(t, byte(50), b)
}

func TestLoadMediaGIF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anim.gif")

	pal := color.Palette{color.Black, color.RGBA{R: 255, A: 255}}
	g := &gif.GIF{}
	for i := 0; i < 3; i++ {
		img := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
		if i%2 == 1 {
			img.SetColorIndex(0, 0, 1)
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, 5) // 50ms
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gif.EncodeAll(f, g))
	require.NoError(t, f.Close())

	src, err := LoadMedia(path)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Frames())
	assert.Equal(t, 150*time.Millisecond, src.Total())
	assert.Equal(t, 50*time.Millisecond, src.FrameDuration())

	fr, idx := src.At(60*time.Millisecond, params.Defaults())
	assert.Equal(t, 1, idx)
	r, _, _ := fr.At(0, 0)
	assert.Equal(t, byte(255), r)
}

func TestLoadMediaGIFTransparentDelta(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delta.gif")

	pal := color.Palette{
		color.RGBA{}, // transparent
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
	}
	full := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	for i := range full.Pix {
		full.Pix[i] = 1
	}
	// Delta frame: one green pixel, everything else transparent. The
	// rest of the canvas must keep the first frame's red.
	delta := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	delta.SetColorIndex(2, 2, 2)

	g := &gif.GIF{
		Image:    []*image.Paletted{full, delta},
		Delay:    []int{10, 10},
		Disposal: []byte{gif.DisposalNone, gif.DisposalNone},
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gif.EncodeAll(f, g))
	require.NoError(t, f.Close())

	src, err := LoadMedia(path)
	require.NoError(t, err)
	require.Equal(t, 2, src.Frames())

	fr, idx := src.At(150*time.Millisecond, params.Defaults())
	require.Equal(t, 1, idx)

	r, gr, b := fr.At(0, 0)
	assert.Equal(t, [3]byte{255, 0, 0}, [3]byte{r, gr, b},
		"transparent pixels keep the previous canvas content")
	r, gr, b = fr.At(2, 2)
	assert.Equal(t, [3]byte{0, 255, 0}, [3]byte{r, gr, b})
}

func TestLoadMediaErrors(t *testing.T) {
	_, err := LoadMedia("/nonexistent/file.gif")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = LoadMedia(bad)
	assert.Error(t, err)
}

func TestLibraryResolve(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png")

	fallbackCalled := ""
	lib := NewLibrary(dir, func(id string) (Source, error) {
		fallbackCalled = id
		if id == "rainbow" {
			return NewProcedural(id, 8, 8, 33*time.Millisecond, func(time.Duration, int, params.Set) Frame {
				return New(8, 8)
			}), nil
		}
		return nil, ErrNotFound
	})

	src, err := lib.Resolve("a.png")
	require.NoError(t, err)
	assert.Equal(t, "a.png", src.UID())

	src, err = lib.Resolve("rainbow")
	require.NoError(t, err)
	assert.Equal(t, "rainbow", src.UID())
	assert.Equal(t, "rainbow", fallbackCalled)

	_, err = lib.Resolve("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.Resolve("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLibraryList(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "b.png")
	writePNG(t, dir, "a.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	lib := NewLibrary(dir, nil)
	ids, err := lib.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, ids)
}
