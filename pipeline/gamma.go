package pipeline

import "math"

// gammaEpsilon guards LUT rebuilds: the table is only recomputed when
// gamma moved by more than this.
const gammaEpsilon = 1e-6

// buildGammaLUT computes the 256-entry per-channel gamma table:
// out = round(255 * (in/255)^gamma). The result is monotonically
// non-decreasing for any positive gamma.
func buildGammaLUT(gamma float64) [256]byte {
	var lut [256]byte
	for i := 0; i < 256; i++ {
		corrected := math.Pow(float64(i)/255.0, gamma)
		lut[i] = byte(math.Round(corrected * 255))
	}
	return lut
}
