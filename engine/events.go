package engine

// Events are delivered synchronously: playback events from the render
// loop at frame boundaries, parameter events from the caller's
// goroutine. Sinks must therefore be safe for concurrent use and
// return quickly; fan-out to slow subscribers belongs behind the sink.
type Sink interface {
	Emit(ev Event)
}

type Event interface {
	eventName() string
}

// Playing is emitted when a source starts.
type Playing struct {
	Source string
}

// Stopped is emitted when playback ends, whether by command, source
// exhaustion or playlist completion.
type Stopped struct{}

// Paused is emitted on pause; resuming re-emits Playing.
type Paused struct{}

// FrameInfo reports playback progress. Emission is rate-limited to
// frameInfoInterval; the final frame of a finite source is always
// reported before Stopped.
type FrameInfo struct {
	Index int
	Total int
	FPS   float64
}

// ParameterUpdated is emitted after a set_parameter was accepted.
type ParameterUpdated struct {
	Name  string
	Value any
}

// DeviceSwitched is emitted after a successful device switch,
// including the automatic switch to the degradation sink.
type DeviceSwitched struct {
	Type   string
	Width  int
	Height int
}

// DrawError reports a device failure during playback that did not stop
// the loop.
type DrawError struct {
	Kind    string
	Message string
}

func (Playing) eventName() string          { return "playing" }
func (Stopped) eventName() string          { return "stopped" }
func (Paused) eventName() string           { return "paused" }
func (FrameInfo) eventName() string        { return "frame_info" }
func (ParameterUpdated) eventName() string { return "parameter_updated" }
func (DeviceSwitched) eventName() string   { return "device_switched" }
func (DrawError) eventName() string        { return "error" }

// NopSink drops all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}
