package frame

import (
	"time"

	"lightbox/params"
)

// Generator is a pure function producing one frame from elapsed time,
// frame index and a parameter snapshot. Keeping generators stateless
// makes them trivially restartable and safe to call from the render
// loop.
type Generator func(elapsed time.Duration, index int, snap params.Set) Frame

// Procedural adapts a Generator to the Source contract. It is infinite
// and restarts simply by the engine resetting elapsed time to zero.
type Procedural struct {
	uid      string
	w, h     int
	interval time.Duration
	gen      Generator
}

// NewProcedural wraps gen as a source rendering at the given canvas
// size and nominal frame interval.
func NewProcedural(uid string, w, h int, interval time.Duration, gen Generator) *Procedural {
	return &Procedural{uid: uid, w: w, h: h, interval: interval, gen: gen}
}

func (p *Procedural) UID() string                  { return p.uid }
func (p *Procedural) Size() (int, int)             { return p.w, p.h }
func (p *Procedural) Frames() int                  { return 0 }
func (p *Procedural) Total() time.Duration         { return 0 }
func (p *Procedural) FrameDuration() time.Duration { return p.interval }

func (p *Procedural) At(elapsed time.Duration, snap params.Set) (Frame, int) {
	index := int(elapsed / p.interval)
	return p.gen(elapsed, index, snap), index
}

func (p *Procedural) FrameEnd(index int) time.Duration {
	if index < 0 {
		index = 0
	}
	return time.Duration(index+1) * p.interval
}
