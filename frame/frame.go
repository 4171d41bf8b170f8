package frame

import (
	"time"

	"lightbox/params"
)

// Frame is one complete still image in packed RGB, row-major, three
// bytes per pixel.
type Frame struct {
	W, H int
	Pix  []byte
}

// New returns an all-black frame of the given size.
func New(w, h int) Frame {
	return Frame{W: w, H: h, Pix: make([]byte, w*h*3)}
}

// At returns the RGB triplet at (x, y). No bounds checking.
func (f Frame) At(x, y int) (r, g, b byte) {
	i := (y*f.W + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes the RGB triplet at (x, y). No bounds checking.
func (f Frame) Set(x, y int, r, g, b byte) {
	i := (y*f.W + x) * 3
	f.Pix[i] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
}

// Source produces an ordered or generated stream of frames. A source
// never mutates external parameter state; it only reads the snapshot
// supplied per call, so At is safe to call from the render loop.
type Source interface {
	// UID identifies the source for events and status reporting.
	UID() string
	// Size is the source's native resolution.
	Size() (w, h int)
	// Frames is the total frame count, or 0 for an infinite source.
	Frames() int
	// FrameDuration is the nominal per-frame duration.
	FrameDuration() time.Duration
	// Total is the full running time, or 0 for an infinite source.
	Total() time.Duration
	// At returns the frame for the given elapsed playback time along
	// with its index. Elapsed time past Total clamps to the last frame
	// for finite sources; looping is the engine's concern.
	At(elapsed time.Duration, snap params.Set) (Frame, int)
	// FrameEnd is the elapsed time at which the given frame ends, the
	// deadline for advancing past it. Frames may have non-uniform
	// durations, so this is not simply (index+1)*FrameDuration. The
	// index clamps to the valid range for finite sources.
	FrameEnd(index int) time.Duration
}
