package device

import (
	"sync"
)

// Mock records the last frame written and otherwise always succeeds.
// It doubles as the degradation sink after a hardware fault.
type Mock struct {
	w, h int

	mu    sync.Mutex
	open  bool
	last  []byte
	draws int
}

func init() {
	Register("MOCK", func(cfg Config) (Device, error) {
		return NewMock(cfg)
	})
}

// NewMock validates the MOCK config schema: width and height, both
// optional with the original defaults.
func NewMock(cfg Config) (*Mock, error) {
	s := newSchema("MOCK", cfg)
	w := s.intField("width", false, 64, 1, 4096)
	h := s.intField("height", false, 32, 1, 4096)
	if err := s.finish(); err != nil {
		return nil, err
	}
	return newMockSized(w, h), nil
}

func newMockSized(w, h int) *Mock {
	return &Mock{w: w, h: h}
}

func (m *Mock) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	return nil
}

func (m *Mock) Size() (int, int) { return m.w, m.h }

func (m *Mock) Draw(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return errf(KindUnavailable, "MOCK", "draw on closed device")
	}
	if len(buf) != m.w*m.h*3 {
		return errf(KindIOError, "MOCK", "buffer is %d bytes, want %d", len(buf), m.w*m.h*3)
	}
	if m.last == nil {
		m.last = make([]byte, len(buf))
	}
	copy(m.last, buf)
	m.draws++
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// LastFrame returns a copy of the most recently drawn buffer, or nil.
func (m *Mock) LastFrame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	out := make([]byte, len(m.last))
	copy(out, m.last)
	return out
}

// Draws returns how many frames have been written.
func (m *Mock) Draws() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draws
}

// IsOpen reports the device state, for tests and status reporting.
func (m *Mock) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}
