package params

import (
	"fmt"
	"sync"
)

// Set holds all live-tunable rendering parameters. It is a plain value
// type: a copy handed out by Store.Snapshot is immutable from the
// caller's point of view.
type Set struct {
	Brightness float64
	Speed      float64
	Gamma      float64
	Balance    [3]float64
	MirrorX    bool
	MirrorY    bool
	Rotation   int
}

// Defaults returns the parameter set used before any update arrives.
func Defaults() Set {
	return Set{
		Brightness: 1.0,
		Speed:      1.0,
		Gamma:      2.2,
		Balance:    [3]float64{1.0, 1.0, 1.0},
	}
}

// ValidationError is returned when an update carries a value outside
// the declared range for its parameter. The store is left unchanged.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %q: %s", e.Name, e.Reason)
}

// Store is the process-wide holder of live-tunable values. It is safe
// for concurrent use; the render loop reads one Snapshot per frame so
// it never observes a half-applied update.
type Store struct {
	mu  sync.RWMutex
	set Set
}

func NewStore() *Store {
	return &Store{set: Defaults()}
}

// Snapshot returns a copy of the full parameter set.
func (s *Store) Snapshot() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// Apply validates and installs a complete parameter set atomically.
func (s *Store) Apply(set Set) error {
	if err := Validate(set); err != nil {
		return err
	}
	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
	return nil
}

// Update validates and applies a single named parameter. Out-of-range
// values are rejected, not clamped: clamping would hide caller bugs.
func (s *Store) Update(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.set
	switch name {
	case "brightness":
		v, err := asFloat(name, value)
		if err != nil {
			return err
		}
		if v < 0 || v > 1 {
			return &ValidationError{Name: name, Reason: fmt.Sprintf("%v outside [0,1]", v)}
		}
		next.Brightness = v
	case "speed":
		v, err := asFloat(name, value)
		if err != nil {
			return err
		}
		if v <= 0 {
			return &ValidationError{Name: name, Reason: fmt.Sprintf("%v must be > 0", v)}
		}
		next.Speed = v
	case "gamma":
		v, err := asFloat(name, value)
		if err != nil {
			return err
		}
		if v < 0.1 || v > 5.0 {
			return &ValidationError{Name: name, Reason: fmt.Sprintf("%v outside [0.1,5.0]", v)}
		}
		next.Gamma = v
	case "rgb_balance":
		v, ok := value.([3]float64)
		if !ok {
			if sl, isSlice := value.([]float64); isSlice && len(sl) == 3 {
				copy(v[:], sl)
			} else {
				return &ValidationError{Name: name, Reason: "expected three floats"}
			}
		}
		for i, f := range v {
			if f < 0 || f > 2 {
				return &ValidationError{Name: name, Reason: fmt.Sprintf("channel %d value %v outside [0,2]", i, f)}
			}
		}
		next.Balance = v
	case "mirror_x", "mirror_y":
		v, ok := value.(bool)
		if !ok {
			return &ValidationError{Name: name, Reason: "expected bool"}
		}
		if name == "mirror_x" {
			next.MirrorX = v
		} else {
			next.MirrorY = v
		}
	case "rotation":
		v, err := asInt(name, value)
		if err != nil {
			return err
		}
		switch v {
		case 0, 90, 180, 270:
			next.Rotation = v
		default:
			return &ValidationError{Name: name, Reason: fmt.Sprintf("%d not one of 0/90/180/270", v)}
		}
	default:
		return &ValidationError{Name: name, Reason: "unknown parameter"}
	}

	s.set = next
	return nil
}

// Validate checks a complete set against the declared ranges.
func Validate(set Set) error {
	if set.Brightness < 0 || set.Brightness > 1 {
		return &ValidationError{Name: "brightness", Reason: fmt.Sprintf("%v outside [0,1]", set.Brightness)}
	}
	if set.Speed <= 0 {
		return &ValidationError{Name: "speed", Reason: fmt.Sprintf("%v must be > 0", set.Speed)}
	}
	if set.Gamma < 0.1 || set.Gamma > 5.0 {
		return &ValidationError{Name: "gamma", Reason: fmt.Sprintf("%v outside [0.1,5.0]", set.Gamma)}
	}
	for i, f := range set.Balance {
		if f < 0 || f > 2 {
			return &ValidationError{Name: "rgb_balance", Reason: fmt.Sprintf("channel %d value %v outside [0,2]", i, f)}
		}
	}
	switch set.Rotation {
	case 0, 90, 180, 270:
	default:
		return &ValidationError{Name: "rotation", Reason: fmt.Sprintf("%d not one of 0/90/180/270", set.Rotation)}
	}
	return nil
}

func asFloat(name string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	}
	return 0, &ValidationError{Name: name, Reason: "expected number"}
}

func asInt(name string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, &ValidationError{Name: name, Reason: "expected integer"}
}
