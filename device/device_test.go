package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingOpen struct {
	closed bool
}

func (f *failingOpen) Open() error {
	return errf(KindUnavailable, "FLAKY", "hardware absent")
}

func (f *failingOpen) Size() (int, int)     { return 8, 8 }
func (f *failingOpen) Draw(buf []byte) error { return nil }

func (f *failingOpen) Close() error {
	f.closed = true
	return nil
}

func init() {
	Register("FLAKY", func(cfg Config) (Device, error) {
		return &failingOpen{}, nil
	})
}

func TestRegistryTypes(t *testing.T) {
	types := Types()
	assert.Contains(t, types, "MOCK")
	assert.Contains(t, types, "WLED")
	assert.Contains(t, types, "TERM")
	assert.Contains(t, types, "HUB75")
	assert.Contains(t, types, "WS2811")
	assert.IsIncreasing(t, types)

	_, err := Create("NOPE", Config{})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestMockLifecycle(t *testing.T) {
	m, err := NewMock(Config{"width": 4, "height": 2})
	require.NoError(t, err)

	err = m.Draw(make([]byte, 4*2*3))
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindUnavailable, derr.Kind)

	require.NoError(t, m.Open())
	buf := rampBuf(8)
	require.NoError(t, m.Draw(buf))
	assert.Equal(t, buf, m.LastFrame())
	assert.Equal(t, 1, m.Draws())

	// Wrong buffer size is rejected, frame stays untouched.
	require.Error(t, m.Draw(make([]byte, 5)))
	assert.Equal(t, buf, m.LastFrame())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.False(t, m.IsOpen())
}

func TestMockConfigDefaults(t *testing.T) {
	m, err := NewMock(Config{})
	require.NoError(t, err)
	w, h := m.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)

	_, err = NewMock(Config{"depth": 3})
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindInvalidConfig, derr.Kind)
}

func TestManagerSwitch(t *testing.T) {
	mgr := NewManager()
	defer mgr.Close()

	dev, err := mgr.Switch("MOCK", Config{"width": 8, "height": 8})
	require.NoError(t, err)
	first := dev.(*Mock)
	assert.True(t, first.IsOpen())

	// Unknown type leaves the active device in place.
	_, err = mgr.Switch("NOPE", Config{})
	require.Error(t, err)
	cur, typ := mgr.Current()
	assert.Same(t, first, cur)
	assert.Equal(t, "MOCK", typ)

	// A failed open also leaves the active device in place.
	_, err = mgr.Switch("FLAKY", Config{})
	require.Error(t, err)
	cur, _ = mgr.Current()
	assert.Same(t, first, cur)
	assert.True(t, first.IsOpen())

	// A successful switch closes the previous device.
	dev2, err := mgr.Switch("MOCK", Config{"width": 4, "height": 4})
	require.NoError(t, err)
	assert.False(t, first.IsOpen())
	assert.True(t, dev2.(*Mock).IsOpen())
}

func TestManagerDegrade(t *testing.T) {
	mgr := NewManager()
	defer mgr.Close()

	dev, err := mgr.Switch("MOCK", Config{"width": 16, "height": 8})
	require.NoError(t, err)
	assert.False(t, mgr.Degraded())

	sink := mgr.Degrade()
	require.NotNil(t, sink)
	assert.True(t, mgr.Degraded())
	assert.False(t, dev.(*Mock).IsOpen())

	// The sink keeps the faulted device's dimensions and takes frames.
	w, h := sink.Size()
	assert.Equal(t, 16, w)
	assert.Equal(t, 8, h)
	assert.NoError(t, sink.Draw(make([]byte, 16*8*3)))

	// A later operator switch clears the degraded flag.
	_, err = mgr.Switch("MOCK", Config{"width": 8, "height": 8})
	require.NoError(t, err)
	assert.False(t, mgr.Degraded())
}

func TestWS2811Encode(t *testing.T) {
	// One full-on red pixel in GRB order: green byte 0x00 expands to
	// 0x92 0x49 0x24, red byte 0xff to 0xdb 0x6d 0xb6.
	out := encodeWS2811([]byte{0xff, 0x00, 0x00}, stripOrders["GRB"])
	require.Equal(t, 9+ws2811LatchBytes, len(out))
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, out[0:3])
	assert.Equal(t, []byte{0xdb, 0x6d, 0xb6}, out[3:6])
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, out[6:9])
	for _, b := range out[9:] {
		assert.Equal(t, byte(0), b)
	}
}

func TestWS2811Config(t *testing.T) {
	d, err := NewWS2811(Config{"width": 10, "height": 6, "strip_type": "bgr"})
	require.NoError(t, err)
	assert.Equal(t, stripOrders["BGR"], d.order)

	kind, file := d.MappingSpec()
	assert.Equal(t, "serpentine", kind)
	assert.Empty(t, file)

	_, err = NewWS2811(Config{"width": 10, "height": 6, "mapping": "custom"})
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindInvalidConfig, derr.Kind)

	_, err = NewWS2811(Config{"width": 10, "height": 6, "strip_type": "XYZ"})
	require.Error(t, err)
}

func TestHUB75Config(t *testing.T) {
	d, err := NewHUB75(Config{"rows": 32, "cols": 64, "chain": 2, "parallel": 1})
	require.NoError(t, err)
	w, h := d.Size()
	assert.Equal(t, 128, w)
	assert.Equal(t, 32, h)
	assert.Equal(t, 8, d.pwmBits)
	assert.Equal(t, 130, d.lsbNanos)

	d, err = NewHUB75(Config{"rows": 32, "cols": 64, "pwm_lsb_nanoseconds": 300})
	require.NoError(t, err)
	assert.Equal(t, 300, d.lsbNanos)

	cases := []Config{
		{"cols": 64},
		{"rows": 32, "cols": 64, "pwm_bits": 12},
		{"rows": 32, "cols": 64, "gpio_slowdown": 9},
		{"rows": 32, "cols": 64, "pwm_lsb_nanoseconds": 10},
		{"rows": 32, "cols": 64, "rotate": 90},
	}
	for _, cfg := range cases {
		_, err := NewHUB75(cfg)
		var derr *Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, KindInvalidConfig, derr.Kind)
	}
}

func TestTermConfig(t *testing.T) {
	d, err := NewTerm(Config{"width": 64, "height": 32})
	require.NoError(t, err)
	w, h := d.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)

	_, err = NewTerm(Config{"width": 64})
	require.Error(t, err)
}

func TestTermDoneSignal(t *testing.T) {
	d, err := NewTerm(Config{"width": 4, "height": 4})
	require.NoError(t, err)
	d.done = make(chan struct{})

	// Both the 'q' handler and a failed terminal run signal done; the
	// two racing must not panic on a double close.
	d.signalDone()
	assert.NotPanics(t, d.signalDone)

	select {
	case <-d.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestHalfBlockText(t *testing.T) {
	// 2x2: red over blue in column 0, black column 1.
	buf := []byte{
		255, 0, 0, 0, 0, 0,
		0, 0, 255, 0, 0, 0,
	}
	text := halfBlockText(buf, 2, 2)
	assert.Contains(t, text, "[#ff0000:#0000ff]▀")
	assert.Contains(t, text, "[#000000:#000000]▀")
}
