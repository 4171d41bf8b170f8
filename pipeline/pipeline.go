// Package pipeline turns a source frame into the packed, corrected,
// physically-ordered pixel buffer a device consumes. The transform is
// pure per call given the parameter snapshot; the struct only caches
// lookup tables that are expensive to rebuild every frame.
package pipeline

import (
	"math"

	"lightbox/frame"
	"lightbox/params"
)

type resampleKey struct {
	srcW, srcH int
	rotation   int
	mirrorX    bool
	mirrorY    bool
}

// Pipeline applies, in order: nearest-neighbour resample to the device
// canvas (with rotation and mirroring folded into the sampling table),
// gamma, RGB balance, brightness, then canvas-to-physical mapping.
type Pipeline struct {
	devW, devH int
	mapping    *Mapping

	tabKey resampleKey
	tab    []int // canvas pixel -> source pixel index

	gamma    float64
	gammaLUT [256]byte

	work []byte
	out  []byte
}

// New builds a pipeline targeting a device canvas. mapping may be nil
// for identity (panel/network devices).
func New(devW, devH int, mapping *Mapping) *Pipeline {
	p := &Pipeline{}
	p.SetTarget(devW, devH, mapping)
	return p
}

// SetTarget repoints the pipeline at a new device canvas, dropping all
// cached tables. Called on device switch.
func (p *Pipeline) SetTarget(devW, devH int, mapping *Mapping) {
	p.devW = devW
	p.devH = devH
	p.mapping = mapping
	p.tab = nil
	p.tabKey = resampleKey{}
	p.gamma = 0
	p.work = make([]byte, devW*devH*3)
	p.out = make([]byte, devW*devH*3)
}

// Size returns the target canvas dimensions.
func (p *Pipeline) Size() (int, int) { return p.devW, p.devH }

// Apply renders one frame into the device's physical pixel order. The
// returned buffer is reused across calls; devices must copy if they
// retain it past the draw.
func (p *Pipeline) Apply(f frame.Frame, snap params.Set) []byte {
	p.ensureResampleTab(f.W, f.H, snap)
	p.ensureGammaLUT(snap.Gamma)

	buf := p.work
	for i, srcIdx := range p.tab {
		s := srcIdx * 3
		d := i * 3
		buf[d] = f.Pix[s]
		buf[d+1] = f.Pix[s+1]
		buf[d+2] = f.Pix[s+2]
	}

	for i := 0; i < len(buf); i += 3 {
		for c := 0; c < 3; c++ {
			v := float64(p.gammaLUT[buf[i+c]])
			v *= snap.Balance[c]
			v *= snap.Brightness
			if v > 255 {
				v = 255
			}
			buf[i+c] = byte(math.Round(v))
		}
	}

	if p.mapping == nil {
		return buf
	}
	p.mapping.apply(buf, p.out)
	return p.out
}

// ensureResampleTab rebuilds the sampling table only when source
// resolution or a geometric transform changed. For each canvas pixel
// the table holds the source pixel to sample after inverting the
// combined transform (rotate first, then mirror, so the composition is
// deterministic regardless of flag order).
func (p *Pipeline) ensureResampleTab(srcW, srcH int, snap params.Set) {
	key := resampleKey{srcW: srcW, srcH: srcH, rotation: snap.Rotation, mirrorX: snap.MirrorX, mirrorY: snap.MirrorY}
	if p.tab != nil && key == p.tabKey {
		return
	}
	tab := make([]int, p.devW*p.devH)
	for y := 0; y < p.devH; y++ {
		for x := 0; x < p.devW; x++ {
			// Pixel-center normalized coordinates.
			u := (float64(x) + 0.5) / float64(p.devW)
			v := (float64(y) + 0.5) / float64(p.devH)

			// Invert mirror, then invert rotation.
			if key.mirrorX {
				u = 1 - u
			}
			if key.mirrorY {
				v = 1 - v
			}
			switch key.rotation {
			case 90: // inverse of 90 degrees clockwise
				u, v = v, 1-u
			case 180:
				u, v = 1-u, 1-v
			case 270:
				u, v = 1-v, u
			}

			sx := int(u * float64(srcW))
			sy := int(v * float64(srcH))
			if sx >= srcW {
				sx = srcW - 1
			}
			if sy >= srcH {
				sy = srcH - 1
			}
			tab[y*p.devW+x] = sy*srcW + sx
		}
	}
	p.tab = tab
	p.tabKey = key
}

func (p *Pipeline) ensureGammaLUT(gamma float64) {
	if p.gamma != 0 && math.Abs(gamma-p.gamma) < gammaEpsilon {
		return
	}
	p.gammaLUT = buildGammaLUT(gamma)
	p.gamma = gamma
}
