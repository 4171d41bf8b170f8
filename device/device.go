// Package device holds the output backends and the manager that
// mediates switching between them. Every backend implements the same
// four-operation contract; adding one means adding a constructor to
// the registry, no shared mutable base state.
package device

import (
	"errors"
	"fmt"
)

// Kind classifies device errors for the control surface and the event
// stream.
type Kind int

const (
	// KindInvalidConfig: descriptor parameters out of the supported
	// range for the backend. Fatal to that construction only.
	KindInvalidConfig Kind = iota
	// KindUnavailable: resource busy or missing at open time.
	KindUnavailable
	// KindIOError: transient transport failure. Reported, retried on
	// the next frame.
	KindIOError
	// KindHardwareFault: bus-level failure. The device is degraded and
	// swapped for a no-op sink until an operator re-switches.
	KindHardwareFault
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "invalid_config"
	case KindUnavailable:
		return "unavailable"
	case KindIOError:
		return "io_error"
	case KindHardwareFault:
		return "hardware_fault"
	}
	return "unknown"
}

// Error is the typed error all backends return.
type Error struct {
	Kind   Kind
	Device string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Device, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Device, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(kind Kind, dev, format string, args ...any) *Error {
	return &Error{Kind: kind, Device: dev, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, dev string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Device: dev, Msg: fmt.Sprintf(format, args...), Err: err}
}

// ErrUnknownType reports a device type that is not registered.
var ErrUnknownType = errors.New("unknown device type")

// Config is the untyped backend configuration as it arrives from the
// YAML file or the control surface. Each backend validates its own
// schema at construction: unknown fields and missing required fields
// are rejected.
type Config map[string]any

// Device is the capability contract every output backend fulfills.
// Construction validates config; Open allocates the hardware or
// network resource; Draw writes exactly one frame in the device's
// physical pixel order (w*h*3 packed RGB bytes); Close is idempotent
// and safe after a partially failed Open.
type Device interface {
	Open() error
	Size() (w, h int)
	Draw(buf []byte) error
	Close() error
}

// MappingProvider is implemented by backends whose physical wiring
// differs from canvas order. The pipeline asks for it when the device
// becomes active.
type MappingProvider interface {
	MappingSpec() (kind string, file string)
}
