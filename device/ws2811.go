package device

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// WS2811 timing over SPI: every data bit expands to three SPI bits so
// that at 2.4 MHz a "1" becomes the long-high pulse 110 and a "0" the
// short-high pulse 100. The reset latch is a stretch of zero bytes
// longer than 50us.
const (
	ws2811SpiSpeed   = 2_400_000
	ws2811LatchBytes = 15
)

// channel order per strip variant, as indices into an RGB triplet
var stripOrders = map[string][3]int{
	"RGB": {0, 1, 2},
	"GRB": {1, 0, 2},
	"BRG": {2, 0, 1},
	"RBG": {0, 2, 1},
	"GBR": {1, 2, 0},
	"BGR": {2, 1, 0},
}

// WS2811 drives an addressable strip through the Pi's SPI0 bus. The
// canvas is two dimensional; the strip's physical layout is described
// by the mapping config consumed by the render pipeline.
type WS2811 struct {
	w, h        int
	order       [3]int
	mappingKind string
	mappingFile string

	mu   sync.Mutex
	open bool
}

func init() {
	Register("WS2811", func(cfg Config) (Device, error) {
		return NewWS2811(cfg)
	})
}

func NewWS2811(cfg Config) (*WS2811, error) {
	s := newSchema("WS2811", cfg)
	w := s.intField("width", true, 0, 1, 4096)
	h := s.intField("height", true, 0, 1, 4096)
	strip := s.enumField("strip_type", false, "GRB", "RGB", "GRB", "BRG", "RBG", "GBR", "BGR")
	mappingKind := s.enumField("mapping", false, "serpentine", "linear", "serpentine", "spiral", "custom")
	mappingFile := s.stringField("mapping_file", false, "")
	if err := s.finish(); err != nil {
		return nil, err
	}
	if mappingKind == "custom" && mappingFile == "" {
		return nil, errf(KindInvalidConfig, "WS2811", "mapping 'custom' needs mapping_file")
	}
	return &WS2811{
		w:           w,
		h:           h,
		order:       stripOrders[strip],
		mappingKind: mappingKind,
		mappingFile: mappingFile,
	}, nil
}

func (d *WS2811) Size() (int, int) { return d.w, d.h }

// MappingSpec tells the pipeline how canvas pixels map onto the strip.
func (d *WS2811) MappingSpec() (string, string) { return d.mappingKind, d.mappingFile }

func (d *WS2811) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}
	if err := rpio.Open(); err != nil {
		return wrapf(KindUnavailable, "WS2811", err, "open gpio")
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return wrapf(KindUnavailable, "WS2811", err, "begin spi")
	}
	rpio.SpiSpeed(ws2811SpiSpeed)
	d.open = true
	return nil
}

func (d *WS2811) Draw(buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return errf(KindUnavailable, "WS2811", "draw on closed device")
	}
	if len(buf) != d.w*d.h*3 {
		return errf(KindIOError, "WS2811", "buffer is %d bytes, want %d", len(buf), d.w*d.h*3)
	}
	rpio.SpiExchange(encodeWS2811(buf, d.order))
	return nil
}

func (d *WS2811) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}
	rpio.SpiExchange(encodeWS2811(make([]byte, d.w*d.h*3), d.order))
	rpio.SpiEnd(rpio.Spi0)
	if err := rpio.Close(); err != nil {
		return wrapf(KindHardwareFault, "WS2811", err, "close gpio")
	}
	d.open = false
	return nil
}

// encodeWS2811 reorders each RGB triplet into the strip's channel order
// and expands every bit into its three-bit SPI waveform, followed by
// the reset latch.
func encodeWS2811(buf []byte, order [3]int) []byte {
	pixels := len(buf) / 3
	out := make([]byte, 0, pixels*9+ws2811LatchBytes)

	var acc uint32
	var nbits int
	flush := func() {
		for nbits >= 8 {
			out = append(out, byte(acc>>uint(nbits-8)))
			nbits -= 8
		}
	}

	for p := 0; p < pixels; p++ {
		for _, ch := range order {
			v := buf[p*3+ch]
			for bit := 7; bit >= 0; bit-- {
				if v&(1<<uint(bit)) != 0 {
					acc = acc<<3 | 0b110
				} else {
					acc = acc<<3 | 0b100
				}
				nbits += 3
				flush()
			}
		}
	}
	if nbits > 0 {
		panic(fmt.Sprintf("ws2811 encode left %d stray bits", nbits))
	}
	return append(out, make([]byte, ws2811LatchBytes)...)
}
