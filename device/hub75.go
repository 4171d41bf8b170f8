package device

import (
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// Default HUB75 pinout (BCM numbering), matching the common Pi adapter
// boards.
var hub75Pins = struct {
	r1, g1, b1 int
	r2, g2, b2 int
	addr       [5]int
	clk, lat   int
	oe         int
}{
	r1: 11, g1: 27, b1: 7,
	r2: 8, g2: 9, b2: 10,
	addr: [5]int{22, 23, 24, 25, 15},
	clk:  17, lat: 4,
	oe: 18,
}

// HUB75 drives a chained matrix panel by bit-banging the shift
// registers over GPIO. Draw swaps the frame into a back buffer and
// returns immediately; a dedicated goroutine refreshes the panel with
// binary coded modulation, spending twice as long on each successive
// bit plane.
type HUB75 struct {
	rows, cols      int
	chain, parallel int
	slowdown        int
	pwmBits         int
	lsbNanos        int

	w, h int

	mu      sync.Mutex
	back    []byte
	stop    chan struct{}
	stopped sync.WaitGroup
	open    bool
}

func init() {
	Register("HUB75", func(cfg Config) (Device, error) {
		return NewHUB75(cfg)
	})
}

func NewHUB75(cfg Config) (*HUB75, error) {
	s := newSchema("HUB75", cfg)
	rows := s.intField("rows", true, 0, 8, 64)
	cols := s.intField("cols", true, 0, 8, 256)
	chain := s.intField("chain", false, 1, 1, 8)
	parallel := s.intField("parallel", false, 1, 1, 3)
	slowdown := s.intField("gpio_slowdown", false, 1, 0, 5)
	pwmBits := s.intField("pwm_bits", false, 8, 1, 11)
	lsbNanos := s.intField("pwm_lsb_nanoseconds", false, 130, 50, 3000)
	if err := s.finish(); err != nil {
		return nil, err
	}
	// The two RGB register chains each serve half the panel rows.
	if rows%2 != 0 {
		return nil, errf(KindInvalidConfig, "HUB75", "rows must be even, got %d", rows)
	}
	return &HUB75{
		rows:     rows,
		cols:     cols,
		chain:    chain,
		parallel: parallel,
		slowdown: slowdown,
		pwmBits:  pwmBits,
		lsbNanos: lsbNanos,
		w:        cols * chain,
		h:        rows * parallel,
	}, nil
}

func (d *HUB75) Size() (int, int) { return d.w, d.h }

func (d *HUB75) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}
	if err := rpio.Open(); err != nil {
		return wrapf(KindUnavailable, "HUB75", err, "open gpio")
	}
	for _, pin := range []int{
		hub75Pins.r1, hub75Pins.g1, hub75Pins.b1,
		hub75Pins.r2, hub75Pins.g2, hub75Pins.b2,
		hub75Pins.addr[0], hub75Pins.addr[1], hub75Pins.addr[2],
		hub75Pins.addr[3], hub75Pins.addr[4],
		hub75Pins.clk, hub75Pins.lat, hub75Pins.oe,
	} {
		p := rpio.Pin(pin)
		p.Output()
		p.Low()
	}
	// Panels are active low on output enable.
	rpio.Pin(hub75Pins.oe).High()

	d.back = make([]byte, d.w*d.h*3)
	d.stop = make(chan struct{})
	d.open = true
	d.stopped.Add(1)
	go d.scanout()
	return nil
}

func (d *HUB75) Draw(buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return errf(KindUnavailable, "HUB75", "draw on closed device")
	}
	if len(buf) != len(d.back) {
		return errf(KindIOError, "HUB75", "buffer is %d bytes, want %d", len(buf), len(d.back))
	}
	copy(d.back, buf)
	return nil
}

func (d *HUB75) Close() error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil
	}
	d.open = false
	close(d.stop)
	d.mu.Unlock()

	d.stopped.Wait()
	rpio.Pin(hub75Pins.oe).High()
	if err := rpio.Close(); err != nil {
		return wrapf(KindHardwareFault, "HUB75", err, "close gpio")
	}
	return nil
}

// scanout refreshes the panel until Close. Each pass shifts one bit
// plane into both half-panel register chains, then holds output enable
// for a time proportional to the plane's significance.
func (d *HUB75) scanout() {
	defer d.stopped.Done()
	frame := make([]byte, d.w*d.h*3)
	half := d.rows / 2

	for {
		select {
		case <-d.stop:
			return
		default:
		}

		d.mu.Lock()
		copy(frame, d.back)
		d.mu.Unlock()

		for plane := 0; plane < d.pwmBits; plane++ {
			threshold := byte(1) << uint(8-d.pwmBits+plane)
			for line := 0; line < half; line++ {
				d.shiftLine(frame, line, half, threshold)
				d.selectLine(line)
				d.pulse(rpio.Pin(hub75Pins.lat))
				d.holdOutput(plane)
			}
		}
	}
}

func (d *HUB75) shiftLine(frame []byte, line, half int, threshold byte) {
	for x := 0; x < d.w; x++ {
		top := (line*d.w + x) * 3
		bot := ((line+half)*d.w + x) * 3
		setLevel(hub75Pins.r1, frame[top]&threshold != 0)
		setLevel(hub75Pins.g1, frame[top+1]&threshold != 0)
		setLevel(hub75Pins.b1, frame[top+2]&threshold != 0)
		setLevel(hub75Pins.r2, frame[bot]&threshold != 0)
		setLevel(hub75Pins.g2, frame[bot+1]&threshold != 0)
		setLevel(hub75Pins.b2, frame[bot+2]&threshold != 0)
		d.pulse(rpio.Pin(hub75Pins.clk))
	}
}

func (d *HUB75) selectLine(line int) {
	for bit, pin := range hub75Pins.addr {
		setLevel(pin, line&(1<<uint(bit)) != 0)
	}
}

// holdOutput enables the panel for 2^plane base units. The base unit is
// pwm_lsb_nanoseconds stretched by gpio_slowdown, so faster Pis do not
// starve the low planes.
func (d *HUB75) holdOutput(plane int) {
	oe := rpio.Pin(hub75Pins.oe)
	oe.Low()
	base := time.Duration(d.lsbNanos) * time.Nanosecond * time.Duration(1+d.slowdown)
	time.Sleep(base << uint(plane))
	oe.High()
}

// pulse toggles a pin with the slowdown-stretched setup time the longer
// ribbon cables of chained panels need.
func (d *HUB75) pulse(pin rpio.Pin) {
	pin.High()
	for i := 0; i < d.slowdown; i++ {
		pin.High()
	}
	pin.Low()
}

func setLevel(pin int, on bool) {
	if on {
		rpio.Pin(pin).High()
	} else {
		rpio.Pin(pin).Low()
	}
}
