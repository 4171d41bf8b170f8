package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// holdWriter parks log lines in memory while the terminal preview owns
// the screen and replays them once a real sink is attached. An optional
// log file always receives every line immediately.
type holdWriter struct {
	mu      sync.Mutex
	held    bytes.Buffer
	sink    io.Writer
	file    *os.File
	holding bool
}

func (w *holdWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.holding {
		w.held.Write(p)
	} else if w.sink != nil {
		if _, err := w.sink.Write(p); err != nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

var out *holdWriter

// Init wires slog's default logger. With hold set, output is buffered
// until Release is called; logFile may be empty.
func Init(hold bool, level, format, logFile string) error {
	out = &holdWriter{holding: hold}
	if !hold {
		out.sink = os.Stderr
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		out.file = f
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Release flushes held lines to sink and switches to live output.
func Release(sink io.Writer) error {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.held.Len() > 0 {
		if _, err := sink.Write(out.held.Bytes()); err != nil {
			return err
		}
		out.held.Reset()
	}
	out.sink = sink
	out.holding = false
	return nil
}

// Hold diverts output back into the memory buffer, for when the
// terminal preview takes the screen over again.
func Hold() {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.sink = nil
	out.holding = true
}

// Close flushes whatever is still held and closes the log file. Held
// lines with nowhere else to go end up on stderr.
func Close() error {
	out.mu.Lock()
	defer out.mu.Unlock()

	var firstErr error
	if out.held.Len() > 0 {
		dest := io.Writer(os.Stderr)
		if out.file != nil {
			dest = out.file
		}
		if _, err := dest.Write(out.held.Bytes()); err != nil {
			firstErr = err
		}
		out.held.Reset()
	}
	if out.file != nil {
		if err := out.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		out.file = nil
	}
	return firstErr
}
