package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightbox/frame"
	"lightbox/params"
)

// neutral parameters: gamma 1.0 makes the LUT an identity.
func neutral() params.Set {
	s := params.Defaults()
	s.Gamma = 1.0
	return s
}

func gradientFrame(w, h int) frame.Frame {
	f := frame.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Set(x, y, byte(x*17), byte(y*31), byte((x+y)*7))
		}
	}
	return f
}

func TestGammaLUTMonotonic(t *testing.T) {
	for _, gamma := range []float64{0.1, 0.5, 1.0, 2.2, 3.7, 5.0} {
		lut := buildGammaLUT(gamma)
		assert.Equal(t, byte(0), lut[0])
		assert.Equal(t, byte(255), lut[255])
		for i := 1; i < 256; i++ {
			assert.GreaterOrEqual(t, lut[i], lut[i-1], "gamma %v must be monotone at %d", gamma, i)
		}
	}
}

func TestApplyIdentity(t *testing.T) {
	f := gradientFrame(8, 4)
	p := New(8, 4, nil)
	out := p.Apply(f, neutral())
	assert.Equal(t, f.Pix, out)
}

func TestResampleDownscale(t *testing.T) {
	f := frame.New(4, 4)
	// Four 2x2 quadrants with distinct red values.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v := byte(0)
			if x >= 2 {
				v += 100
			}
			if y >= 2 {
				v += 50
			}
			f.Set(x, y, v, 0, 0)
		}
	}
	p := New(2, 2, nil)
	out := p.Apply(f, neutral())
	assert.Equal(t, byte(0), out[0])
	assert.Equal(t, byte(100), out[3])
	assert.Equal(t, byte(50), out[6])
	assert.Equal(t, byte(150), out[9])
}

func TestMirrorXRoundTrip(t *testing.T) {
	orig := gradientFrame(8, 4)
	snap := neutral()
	snap.MirrorX = true

	p := New(8, 4, nil)
	once := p.Apply(orig, snap)
	assert.NotEqual(t, orig.Pix, once)

	mid := frame.Frame{W: 8, H: 4, Pix: append([]byte(nil), once...)}
	twice := p.Apply(mid, snap)
	assert.Equal(t, orig.Pix, twice)
}

func TestRotationFullCircleIsIdentity(t *testing.T) {
	orig := gradientFrame(6, 6)
	snap := neutral()
	snap.Rotation = 90

	p := New(6, 6, nil)
	cur := orig
	for i := 0; i < 4; i++ {
		out := p.Apply(cur, snap)
		cur = frame.Frame{W: 6, H: 6, Pix: append([]byte(nil), out...)}
	}
	assert.Equal(t, orig.Pix, cur.Pix)

	quarter := p.Apply(orig, snap)
	assert.NotEqual(t, orig.Pix, quarter)
}

func TestRotateThenMirrorComposition(t *testing.T) {
	// rotation+mirror combined must equal applying rotation first and
	// mirroring the result, independent of how the flags were set.
	orig := gradientFrame(6, 6)

	rot := neutral()
	rot.Rotation = 90
	mir := neutral()
	mir.MirrorX = true
	both := neutral()
	both.Rotation = 90
	both.MirrorX = true

	p := New(6, 6, nil)
	step1 := append([]byte(nil), p.Apply(orig, rot)...)
	step2 := append([]byte(nil), p.Apply(frame.Frame{W: 6, H: 6, Pix: step1}, mir)...)
	combined := p.Apply(orig, both)
	assert.Equal(t, step2, combined)
}

func TestBrightnessAndBalance(t *testing.T) {
	f := frame.New(1, 1)
	f.Set(0, 0, 100, 200, 250)

	snap := neutral()
	snap.Brightness = 0.5
	p := New(1, 1, nil)
	out := p.Apply(f, snap)
	assert.Equal(t, []byte{50, 100, 125}, append([]byte(nil), out...))

	snap = neutral()
	snap.Balance = [3]float64{2, 1, 0.5}
	out = p.Apply(f, snap)
	// Red boosted past 255 clamps.
	assert.Equal(t, []byte{200, 200, 125}, append([]byte(nil), out...))
}

func TestGammaAppliedThroughPipeline(t *testing.T) {
	f := frame.New(1, 1)
	f.Set(0, 0, 128, 128, 128)

	snap := params.Defaults() // gamma 2.2
	p := New(1, 1, nil)
	out := p.Apply(f, snap)
	// (128/255)^2.2 * 255 = 56
	assert.Equal(t, byte(56), out[0])
}

func TestSerpentineMapping(t *testing.T) {
	m, err := NewMapping("serpentine", 3, 2)
	require.NoError(t, err)

	// Row 0 keeps order, row 1 reverses.
	assert.Equal(t, 0, m.Physical(0, 0))
	assert.Equal(t, 2, m.Physical(2, 0))
	assert.Equal(t, 5, m.Physical(0, 1))
	assert.Equal(t, 3, m.Physical(2, 1))

	f := gradientFrame(3, 2)
	p := New(3, 2, m)
	out := p.Apply(f, neutral())
	r, g, b := f.At(0, 1)
	assert.Equal(t, []byte{r, g, b}, append([]byte(nil), out[5*3:5*3+3]...))
}

func TestSpiralMappingIsBijective(t *testing.T) {
	m, err := NewMapping("spiral", 5, 5)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			phys := m.Physical(x, y)
			assert.GreaterOrEqual(t, phys, 0)
			assert.Less(t, phys, 25)
			assert.False(t, seen[phys], "physical index %d used twice", phys)
			seen[phys] = true
		}
	}
	// The walk starts at the center.
	assert.Equal(t, 0, m.Physical(2, 2))
}

func TestUnknownMappingKind(t *testing.T) {
	_, err := NewMapping("zigzagzag", 4, 4)
	assert.Error(t, err)
}

func TestResampleTableCaching(t *testing.T) {
	p := New(4, 4, nil)
	snap := neutral()
	p.Apply(gradientFrame(8, 8), snap)
	tab1 := p.tab
	p.Apply(gradientFrame(8, 8), snap)
	assert.Equal(t, &tab1[0], &p.tab[0], "same (src,dst) pair must reuse the cached table")

	p.Apply(gradientFrame(16, 16), snap)
	assert.NotEqual(t, &tab1[0], &p.tab[0], "new source size must rebuild the table")
}
