package device

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// Constructor builds (but does not open) a backend from its config.
type Constructor func(cfg Config) (Device, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Constructor{}
)

// Register adds a device type to the global registry. Called from the
// backends' init functions.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// Types returns all registered device type names, sorted.
func Types() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := maps.Keys(registry)
	sort.Strings(names)
	return names
}

// Create validates config and constructs a backend without opening it.
func Create(typ string, cfg Config) (Device, error) {
	registryMu.Lock()
	ctor, ok := registry[typ]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("device type %q: %w", typ, ErrUnknownType)
	}
	return ctor(cfg)
}

// Manager owns exactly one active device at a time and mediates
// hot-switching. Switch is all-or-nothing: the old device is only
// closed after the new one opened successfully.
type Manager struct {
	mu       sync.Mutex
	current  Device
	currType string
	degraded bool
}

func NewManager() *Manager {
	return &Manager{}
}

// Switch constructs and opens a device of the given type. On any
// failure the previously active device stays open and active.
func (m *Manager) Switch(typ string, cfg Config) (Device, error) {
	next, err := Create(typ, cfg)
	if err != nil {
		return nil, err
	}
	if err := next.Open(); err != nil {
		// Close releases whatever a partial open may have grabbed.
		next.Close()
		return nil, err
	}

	m.mu.Lock()
	old := m.current
	m.current = next
	m.currType = typ
	m.degraded = false
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			slog.Error("closing replaced device", "error", err)
		}
	}
	w, h := next.Size()
	slog.Info("device switched", "type", typ, "width", w, "height", h)
	return next, nil
}

// Current returns the active device and its type name, or nil if none
// has been opened yet.
func (m *Manager) Current() (Device, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.currType
}

// Degraded reports whether the active device is the fault-replacement
// sink rather than an operator-chosen backend.
func (m *Manager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Degrade swaps the active device for a mock sink of the same size
// after a hardware fault, so playback (and its timing) continues until
// an operator re-switches. The faulted device is closed best-effort.
func (m *Manager) Degrade() Device {
	m.mu.Lock()
	old := m.current
	if old == nil {
		m.mu.Unlock()
		return nil
	}
	w, h := old.Size()
	sink := newMockSized(w, h)
	sink.Open()
	m.current = sink
	m.currType = "MOCK"
	m.degraded = true
	m.mu.Unlock()

	if err := old.Close(); err != nil {
		slog.Error("closing degraded device", "error", err)
	}
	slog.Warn("device degraded, frames go to a mock sink", "width", w, "height", h)
	return sink
}

// Close shuts the active device down. Safe to call repeatedly.
func (m *Manager) Close() error {
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.currType = ""
	m.mu.Unlock()
	if old == nil {
		return nil
	}
	return old.Close()
}
