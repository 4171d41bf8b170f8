package automation

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"lightbox/frame"
	"lightbox/params"
)

func setHSV(f frame.Frame, x, y int, hue, sat, val float64) {
	c := colorful.Hsv(math.Mod(hue, 1.0)*360, sat, val)
	r, g, b := c.RGB255()
	f.Set(x, y, r, g, b)
}

// rainbow: horizontal hue gradient cycling over time.
func newRainbow(w, h int) frame.Generator {
	const cycleSpeed = 0.2 // cycles per second
	return func(elapsed time.Duration, _ int, _ params.Set) frame.Frame {
		f := frame.New(w, h)
		t := elapsed.Seconds()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pos := float64(x) / float64(w)
				setHSV(f, x, y, pos+t*cycleSpeed, 1, 1)
			}
		}
		return f
	}
}

// color_wave: sine-wave brightness with slow hue cycling.
func newColorWave(w, h int) frame.Generator {
	const (
		waveSpeed  = 1.0
		colorSpeed = 0.5
	)
	return func(elapsed time.Duration, _ int, _ params.Set) frame.Frame {
		f := frame.New(w, h)
		t := elapsed.Seconds()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				wave := math.Sin(float64(x)/float64(w)*2*math.Pi + t*waveSpeed)
				wave = (wave + 1) / 2
				hue := t*colorSpeed + float64(x)/float64(w)
				setHSV(f, x, y, hue, 1, wave)
			}
		}
		return f
	}
}

// plasma: three interfering sine fields mapped to hue.
func newPlasma(w, h int) frame.Generator {
	const scale = 0.1
	return func(elapsed time.Duration, _ int, _ params.Set) frame.Frame {
		f := frame.New(w, h)
		t := elapsed.Seconds()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				cx := float64(x) * scale
				cy := float64(y) * scale
				v1 := math.Sin(cx + t)
				v2 := math.Sin(10*(cx*math.Sin(t/2)+cy*math.Cos(t/3)) + t)
				cx += scale * math.Sin(t/5)
				cy += scale * math.Cos(t/3)
				v3 := math.Sin(math.Sqrt(100*(cx*cx+cy*cy)+1) + t)
				v := (v1 + v2 + v3) / 3
				setHSV(f, x, y, (v+1)/2, 1, 1)
			}
		}
		return f
	}
}

// breathe: whole-canvas sine pulse between a floor brightness and full.
func newBreathe(w, h int) frame.Generator {
	const (
		breatheSpeed  = 0.5
		minBrightness = 0.1
	)
	return func(elapsed time.Duration, _ int, _ params.Set) frame.Frame {
		f := frame.New(w, h)
		b := math.Sin(elapsed.Seconds()*breatheSpeed*2*math.Pi)*0.5 + 0.5
		b = minBrightness + b*(1-minBrightness)
		v := byte(math.Round(b * 255))
		for i := 0; i < len(f.Pix); i++ {
			f.Pix[i] = v
		}
		return f
	}
}

// strobe: full-on/full-off square wave.
func newStrobe(w, h int) frame.Generator {
	const (
		frequency = 10.0
		dutyCycle = 0.5
	)
	return func(elapsed time.Duration, _ int, _ params.Set) frame.Frame {
		f := frame.New(w, h)
		phase := math.Mod(elapsed.Seconds()*frequency, 1.0)
		if phase < dutyCycle {
			for i := range f.Pix {
				f.Pix[i] = 255
			}
		}
		return f
	}
}

// checkerboard: scrolling two-color grid.
func newCheckerboard(w, h int) frame.Generator {
	const (
		squareSize  = 4
		scrollSpeed = 1.0
	)
	return func(elapsed time.Duration, _ int, _ params.Set) frame.Frame {
		f := frame.New(w, h)
		offset := int(elapsed.Seconds()*scrollSpeed*squareSize) % (squareSize * 2)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sx := (x + offset) / squareSize
				sy := (y + offset) / squareSize
				if (sx+sy)%2 == 0 {
					f.Set(x, y, 255, 255, 255)
				}
			}
		}
		return f
	}
}

// sparkle: deterministic twinkle. Each pixel hashes its coordinates
// together with a coarse time bucket; the hash decides whether the
// pixel lights this bucket and where in its fade-out it starts. Being
// hash-driven instead of random keeps the generator a pure function of
// time.
func newSparkle(w, h int) frame.Generator {
	const (
		bucket  = 800 * time.Millisecond
		density = 0.04
	)
	return func(elapsed time.Duration, _ int, _ params.Set) frame.Frame {
		f := frame.New(w, h)
		n := elapsed / bucket
		phase := float64(elapsed%bucket) / float64(bucket)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				hv := pixelHash(x, y, int64(n))
				if float64(hv%10000)/10000 >= density {
					continue
				}
				// Fade from full to zero across the bucket, offset per
				// pixel so sparkles do not blink in lockstep.
				start := float64((hv/10000)%1000) / 1000
				life := phase - start
				if life < 0 {
					life += 1
				}
				v := byte(math.Round((1 - life) * 255))
				f.Set(x, y, v, v, v)
			}
		}
		return f
	}
}

func pixelHash(x, y int, bucket int64) uint64 {
	hasher := fnv.New64a()
	var buf [24]byte
	put64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	put64(0, uint64(x))
	put64(8, uint64(y))
	put64(16, uint64(bucket))
	hasher.Write(buf[:])
	return hasher.Sum64()
}
