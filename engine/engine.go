package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lightbox/device"
	"lightbox/frame"
	"lightbox/params"
	"lightbox/pipeline"
	"lightbox/playlist"
)

// frame_info events are throttled to this interval. The last frame of
// a finite source is exempt so observers always see the final index.
const frameInfoInterval = 250 * time.Millisecond

const fpsWindow = 2 * time.Second

type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "stopped"
}

var ErrShutdown = errors.New("engine is shut down")

// Resolver turns a source id into a playable frame source.
type Resolver interface {
	Resolve(id string) (frame.Source, error)
}

// Config wires the engine's collaborators. Devices must hold an open
// device before Start. Sink and Dimmer are optional; Queue may be nil
// when no playlist is in use.
type Config struct {
	Store   *params.Store
	Devices *device.Manager
	Sources Resolver
	Queue   *playlist.Playlist
	Sink    Sink
	Dimmer  *NightDimmer
}

// Status is a point-in-time snapshot for the control surface.
type Status struct {
	State      State
	Source     string
	FrameIndex int
	FrameTotal int
	FPS        float64
	Device     string
	DeviceW    int
	DeviceH    int
	Degraded   bool
	Params     params.Set
}

// session is the mutable state of one playing source, owned by the
// render goroutine.
type session struct {
	source frame.Source
	loop   bool
	// maxDur overrides the source's natural length, for playlist items
	// with a duration and for procedural sources on a playlist.
	maxDur    time.Duration
	fromQueue bool
	virtual   time.Duration
	lastTick  time.Time
	index     int
	// lastElapsed is the source-relative time the last frame was picked
	// at; it differs from virtual once a looping source wraps.
	lastElapsed  time.Duration
	lastInfoTime time.Time
}

type cmdKind int

const (
	cmdPlay cmdKind = iota
	cmdPlayQueue
	cmdStop
	cmdPause
	cmdResume
	cmdSwitchDevice
)

type command struct {
	kind   cmdKind
	source string
	loop   bool
	devTyp string
	devCfg device.Config
	reply  chan error
}

// Engine runs the render loop: pull a frame from the active source,
// push it through the pipeline to the active device, pace to the
// source's frame rate. All control traffic goes through a command
// channel the loop consumes only between frames, so no command ever
// preempts an in-flight draw.
type Engine struct {
	store   *params.Store
	devices *device.Manager
	sources Resolver
	queue   *playlist.Playlist
	sink    Sink
	dimmer  *NightDimmer

	pipe *pipeline.Pipeline
	fps  *fpsEstimator

	commands chan command
	stopChan chan struct{}
	wg       sync.WaitGroup

	sess    *session
	leaving bool

	mu     sync.Mutex
	status Status
}

func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil || cfg.Devices == nil || cfg.Sources == nil {
		return nil, errors.New("engine needs a parameter store, a device manager and a source resolver")
	}
	dev, typ := cfg.Devices.Current()
	if dev == nil {
		return nil, errors.New("engine needs an open device")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	pipe, err := pipelineFor(dev)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:    cfg.Store,
		devices:  cfg.Devices,
		sources:  cfg.Sources,
		queue:    cfg.Queue,
		sink:     sink,
		dimmer:   cfg.Dimmer,
		pipe:     pipe,
		fps:      newFPSEstimator(fpsWindow),
		commands: make(chan command),
		stopChan: make(chan struct{}),
	}
	e.status.Device = typ
	return e, nil
}

// pipelineFor builds the render pipeline targeting the device's
// physical address space.
func pipelineFor(dev device.Device) (*pipeline.Pipeline, error) {
	w, h := dev.Size()
	kind, file := "linear", ""
	if mp, ok := dev.(device.MappingProvider); ok {
		kind, file = mp.MappingSpec()
	}
	var mapping *pipeline.Mapping
	var err error
	if kind == "custom" {
		mapping, err = pipeline.LoadMapping(file, w, h)
	} else {
		mapping, err = pipeline.NewMapping(kind, w, h)
	}
	if err != nil {
		return nil, fmt.Errorf("device mapping: %w", err)
	}
	return pipeline.New(w, h, mapping), nil
}

func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Shutdown stops the render loop and waits for it to exit. The active
// device is left to the manager's owner to close.
func (e *Engine) Shutdown() {
	close(e.stopChan)
	e.wg.Wait()
}

// Play resolves and starts a single source. Returns once decode
// finished and the source is on air.
func (e *Engine) Play(sourceID string, loop bool) error {
	return e.send(command{kind: cmdPlay, source: sourceID, loop: loop})
}

// PlayQueue starts playback from the playlist's current item.
func (e *Engine) PlayQueue() error {
	return e.send(command{kind: cmdPlayQueue})
}

// Stop ends playback. Idempotent.
func (e *Engine) Stop() error {
	return e.send(command{kind: cmdStop})
}

func (e *Engine) Pause() error {
	return e.send(command{kind: cmdPause})
}

func (e *Engine) Resume() error {
	return e.send(command{kind: cmdResume})
}

// SwitchDevice opens a new output device. All-or-nothing: on any
// failure the previous device keeps playing.
func (e *Engine) SwitchDevice(typ string, cfg device.Config) error {
	return e.send(command{kind: cmdSwitchDevice, devTyp: typ, devCfg: cfg})
}

// SetParameter validates and applies a live parameter. It never waits
// on the render loop; the new value is picked up with the next frame's
// snapshot.
func (e *Engine) SetParameter(name string, value any) error {
	if err := e.store.Update(name, value); err != nil {
		return err
	}
	e.sink.Emit(ParameterUpdated{Name: name, Value: value})
	return nil
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	st := e.status
	e.mu.Unlock()
	st.Params = e.store.Snapshot()
	dev, typ := e.devices.Current()
	st.Device = typ
	if dev != nil {
		st.DeviceW, st.DeviceH = dev.Size()
	}
	st.Degraded = e.devices.Degraded()
	return st
}

func (e *Engine) send(cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case e.commands <- cmd:
	case <-e.stopChan:
		return ErrShutdown
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-e.stopChan:
		return ErrShutdown
	}
}

func (e *Engine) run() {
	defer e.wg.Done()
	for !e.leaving {
		if e.state() != StatePlaying {
			select {
			case <-e.stopChan:
				e.leaving = true
			case cmd := <-e.commands:
				cmd.reply <- e.handle(cmd)
			}
			continue
		}
		e.renderFrame()
		if e.sess != nil && e.sessionDone() {
			e.finishSession()
			continue
		}
		e.pace()
	}
	e.clearSession(false)
}

func (e *Engine) state() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status.State
}

func (e *Engine) setState(st State) {
	e.mu.Lock()
	e.status.State = st
	e.mu.Unlock()
}

func (e *Engine) handle(cmd command) error {
	switch cmd.kind {
	case cmdPlay:
		src, err := e.sources.Resolve(cmd.source)
		if err != nil {
			return fmt.Errorf("source %q: %w", cmd.source, err)
		}
		e.startSession(&session{source: src, loop: cmd.loop})
		return nil

	case cmdPlayQueue:
		if e.queue == nil {
			return errors.New("no playlist configured")
		}
		item, _, ok := e.queue.Current()
		if !ok {
			return errors.New("playlist is empty")
		}
		return e.startQueueItem(item)

	case cmdStop:
		e.clearSession(true)
		return nil

	case cmdPause:
		if e.state() != StatePlaying {
			return errors.New("not playing")
		}
		e.setState(StatePaused)
		e.sink.Emit(Paused{})
		return nil

	case cmdResume:
		if e.state() != StatePaused {
			return errors.New("not paused")
		}
		// Paused wall time must not advance playback time.
		e.sess.lastTick = time.Time{}
		e.setState(StatePlaying)
		e.sink.Emit(Playing{Source: e.sess.source.UID()})
		return nil

	case cmdSwitchDevice:
		dev, err := e.devices.Switch(cmd.devTyp, cmd.devCfg)
		if err != nil {
			return err
		}
		pipe, err := pipelineFor(dev)
		if err != nil {
			return err
		}
		e.pipe = pipe
		w, h := dev.Size()
		e.sink.Emit(DeviceSwitched{Type: cmd.devTyp, Width: w, Height: h})
		return nil
	}
	return fmt.Errorf("unknown command %d", cmd.kind)
}

func (e *Engine) startSession(s *session) {
	e.sess = s
	e.fps.Reset()
	e.mu.Lock()
	e.status.State = StatePlaying
	e.status.Source = s.source.UID()
	e.status.FrameIndex = 0
	e.status.FrameTotal = s.source.Frames()
	e.mu.Unlock()
	e.sink.Emit(Playing{Source: s.source.UID()})
	slog.Info("playback started", "source", s.source.UID(), "frames", s.source.Frames())
}

func (e *Engine) startQueueItem(item playlist.Item) error {
	src, err := e.sources.Resolve(item.Source)
	if err != nil {
		return fmt.Errorf("playlist item %q: %w", item.Source, err)
	}
	maxDur := item.Duration
	if maxDur == 0 {
		maxDur = src.Total()
	}
	if maxDur == 0 {
		return fmt.Errorf("playlist item %q: infinite source needs a duration", item.Source)
	}
	e.startSession(&session{source: src, maxDur: maxDur, fromQueue: true})
	return nil
}

func (e *Engine) clearSession(emit bool) {
	if e.sess == nil {
		e.setState(StateStopped)
		return
	}
	e.sess = nil
	e.setState(StateStopped)
	if emit {
		e.sink.Emit(Stopped{})
		slog.Info("playback stopped")
	}
}

// renderFrame advances playback time, renders the frame it lands on
// and writes it out. Sources index by elapsed time, so falling behind
// skips ahead to the current frame instead of bursting through every
// missed one.
func (e *Engine) renderFrame() {
	s := e.sess
	snap := e.store.Snapshot()
	now := time.Now()
	if !s.lastTick.IsZero() {
		s.virtual += time.Duration(float64(now.Sub(s.lastTick)) * snap.Speed)
	}
	s.lastTick = now

	elapsed := s.virtual
	if s.loop && s.source.Total() > 0 {
		elapsed = elapsed % s.source.Total()
	}
	f, idx := s.source.At(elapsed, snap)
	s.index = idx
	s.lastElapsed = elapsed

	draw := snap
	if e.dimmer != nil {
		draw.Brightness *= e.dimmer.Factor(now)
	}
	buf := e.pipe.Apply(f, draw)

	dev, _ := e.devices.Current()
	if err := dev.Draw(buf); err != nil {
		e.handleDrawError(err)
	}

	e.fps.Tick(now)
	e.mu.Lock()
	e.status.FrameIndex = idx
	e.status.FPS = e.fps.Estimate()
	e.mu.Unlock()

	final := s.source.Frames() > 0 && idx == s.source.Frames()-1
	if final || now.Sub(s.lastInfoTime) >= frameInfoInterval {
		s.lastInfoTime = now
		e.sink.Emit(FrameInfo{Index: idx, Total: s.source.Frames(), FPS: e.fps.Estimate()})
	}
}

// handleDrawError keeps the loop alive: transient errors are surfaced
// as events, a hardware fault swaps the device for the mock sink so
// timing stays consistent until an operator re-switches.
func (e *Engine) handleDrawError(err error) {
	var derr *device.Error
	kind := "io_error"
	if errors.As(err, &derr) {
		kind = derr.Kind.String()
	}
	e.sink.Emit(DrawError{Kind: kind, Message: err.Error()})
	slog.Error("frame draw failed", "error", err)

	if derr != nil && derr.Kind == device.KindHardwareFault {
		if sink := e.devices.Degrade(); sink != nil {
			if pipe, perr := pipelineFor(sink); perr == nil {
				e.pipe = pipe
			}
			w, h := sink.Size()
			e.sink.Emit(DeviceSwitched{Type: "MOCK", Width: w, Height: h})
		}
	}
}

// sessionDone reports whether the current source ran its course.
func (e *Engine) sessionDone() bool {
	s := e.sess
	if s.maxDur > 0 {
		return s.virtual >= s.maxDur
	}
	if s.loop || s.source.Total() == 0 {
		return false
	}
	return s.virtual >= s.source.Total()
}

// finishSession advances the playlist or stops.
func (e *Engine) finishSession() {
	fromQueue := e.sess.fromQueue
	if fromQueue && e.queue != nil {
		if item, ok := e.queue.Advance(); ok {
			err := e.startQueueItem(item)
			if err == nil {
				return
			}
			slog.Error("advancing playlist", "error", err)
		}
	}
	e.clearSession(true)
}

// pace sleeps until the next frame boundary. The wait doubles as the
// command window: any incoming command cancels it immediately.
func (e *Engine) pace() {
	s := e.sess
	snap := e.store.Snapshot()
	// Frame delays may be uneven, so the boundary comes from the source
	// itself rather than a nominal per-frame interval.
	wait := time.Duration(float64(s.source.FrameEnd(s.index)-s.lastElapsed) / snap.Speed)
	if wait <= 0 {
		// Already behind; render the frame elapsed time points at now.
		return
	}
	timer := time.NewTimer(wait)
	select {
	case <-timer.C:
	case cmd := <-e.commands:
		timer.Stop()
		cmd.reply <- e.handle(cmd)
	case <-e.stopChan:
		timer.Stop()
		e.leaving = true
	}
}
