package device

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"lightbox/util"
)

// Term renders the canvas into a terminal window using tview. Each text
// cell shows two stacked pixels via the upper-half-block glyph, with
// the top pixel as foreground and the bottom pixel as background
// color. Draw never blocks on the terminal: frames go through a
// coalescing mailbox and a slow redraw only ever skips to the newest
// frame.
type Term struct {
	w, h int

	app      *tview.Application
	canvas   *tview.TextView
	frames   *util.Latest[[]byte]
	done     chan struct{}
	doneOnce sync.Once
	stop     chan struct{}
	running  bool
}

func init() {
	Register("TERM", func(cfg Config) (Device, error) {
		return NewTerm(cfg)
	})
}

func NewTerm(cfg Config) (*Term, error) {
	s := newSchema("TERM", cfg)
	w := s.intField("width", true, 0, 1, 512)
	h := s.intField("height", true, 0, 1, 512)
	if err := s.finish(); err != nil {
		return nil, err
	}
	return &Term{
		w:      w,
		h:      h,
		frames: util.NewLatest[[]byte](),
	}, nil
}

func (d *Term) Size() (int, int) { return d.w, d.h }

// Done is closed when the preview ends, either by the user quitting
// with 'q' or the terminal application failing.
func (d *Term) Done() <-chan struct{} { return d.done }

func (d *Term) signalDone() {
	d.doneOnce.Do(func() { close(d.done) })
}

func (d *Term) Open() error {
	if d.running {
		return errf(KindInvalidConfig, "TERM", "device already open")
	}
	d.done = make(chan struct{})
	d.doneOnce = sync.Once{}
	d.stop = make(chan struct{})

	canvas := tview.NewTextView()
	canvas.SetDynamicColors(true)
	canvas.SetBorder(true).SetTitle(" lightbox preview ").SetTitleColor(tcell.ColorLightBlue)
	canvas.SetBackgroundColor(tcell.ColorBlack)

	layout := tview.NewFlex().SetDirection(tview.FlexRow)
	layout.AddItem(canvas, d.h/2+3, 1, false)
	layout.SetRect(1, 1, d.w+4, d.h/2+4)

	app := tview.NewApplication()
	app.SetRoot(layout, false)
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q', 'Q':
			app.Stop()
			d.signalDone()
		}
		return event
	})

	d.app = app
	d.canvas = canvas
	d.running = true

	go func() {
		// A failing terminal must not take the render loop down with
		// it; report and let Done signal the shutdown path.
		if err := app.Run(); err != nil {
			slog.Error("terminal preview stopped", "error", err)
			d.signalDone()
		}
	}()
	go d.redrawLoop()
	return nil
}

func (d *Term) Draw(buf []byte) error {
	if !d.running {
		return errf(KindUnavailable, "TERM", "draw on closed device")
	}
	if len(buf) != d.w*d.h*3 {
		return errf(KindIOError, "TERM", "buffer is %d bytes, want %d", len(buf), d.w*d.h*3)
	}
	frame := make([]byte, len(buf))
	copy(frame, buf)
	d.frames.Publish(frame)
	return nil
}

func (d *Term) Close() error {
	if !d.running {
		return nil
	}
	d.running = false
	close(d.stop)
	d.app.Stop()
	return nil
}

func (d *Term) redrawLoop() {
	for {
		select {
		case <-d.stop:
			return
		case <-d.frames.Channel():
			text := halfBlockText(d.frames.Get(), d.w, d.h)
			d.app.QueueUpdateDraw(func() {
				d.canvas.SetText(text)
			})
		}
	}
}

// halfBlockText turns a packed RGB buffer into tview markup, two pixel
// rows per text line. An odd final row gets a black bottom half.
func halfBlockText(buf []byte, w, h int) string {
	var b strings.Builder
	b.Grow(h / 2 * w * 20)
	for y := 0; y < h; y += 2 {
		b.WriteString(" ")
		for x := 0; x < w; x++ {
			top := y*w + x
			tr, tg, tb := buf[top*3], buf[top*3+1], buf[top*3+2]
			var br, bg, bb byte
			if y+1 < h {
				bot := (y+1)*w + x
				br, bg, bb = buf[bot*3], buf[bot*3+1], buf[bot*3+2]
			}
			fmt.Fprintf(&b, "[#%02x%02x%02x:#%02x%02x%02x]▀", tr, tg, tb, br, bg, bb)
		}
		b.WriteString("[-:-]\n")
	}
	return b.String()
}
