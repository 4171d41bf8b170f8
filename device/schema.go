package device

import (
	"sort"
	"strings"
)

// schema is a tiny declarative helper for backend config validation.
// Parse errors all come back as KindInvalidConfig naming the field, so
// a misconfigured switch_device is diagnosable from the error alone.
type schema struct {
	device string
	cfg    Config
	known  map[string]bool
	err    error
}

func newSchema(device string, cfg Config) *schema {
	return &schema{device: device, cfg: cfg, known: make(map[string]bool)}
}

func (s *schema) fail(format string, args ...any) {
	if s.err == nil {
		s.err = errf(KindInvalidConfig, s.device, format, args...)
	}
}

// finish rejects any field the backend did not declare.
func (s *schema) finish() error {
	if s.err != nil {
		return s.err
	}
	var unknown []string
	for name := range s.cfg {
		if !s.known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errf(KindInvalidConfig, s.device, "unknown config fields: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func (s *schema) lookup(name string, required bool) (any, bool) {
	s.known[name] = true
	v, ok := s.cfg[name]
	if !ok && required {
		s.fail("missing required field %q", name)
	}
	return v, ok
}

func (s *schema) intField(name string, required bool, def, min, max int) int {
	v, ok := s.lookup(name, required)
	if !ok || s.err != nil {
		return def
	}
	i, ok := toInt(v)
	if !ok {
		s.fail("field %q: expected integer, got %T", name, v)
		return def
	}
	if i < min || i > max {
		s.fail("field %q: %d outside [%d,%d]", name, i, min, max)
		return def
	}
	return i
}

func (s *schema) stringField(name string, required bool, def string) string {
	v, ok := s.lookup(name, required)
	if !ok || s.err != nil {
		return def
	}
	str, ok := v.(string)
	if !ok {
		s.fail("field %q: expected string, got %T", name, v)
		return def
	}
	return str
}

func (s *schema) enumField(name string, required bool, def string, allowed ...string) string {
	v := s.stringField(name, required, def)
	if s.err != nil {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	s.fail("field %q: %q not one of %s", name, v, strings.Join(allowed, "/"))
	return def
}

func toInt(v any) (int, bool) {
	switch i := v.(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	case float64:
		if i == float64(int(i)) {
			return int(i), true
		}
	}
	return 0, false
}
