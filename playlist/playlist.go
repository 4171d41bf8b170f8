package playlist

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Policy controls what Advance does when a source finishes.
type Policy string

const (
	// PolicyNext plays each item once and stops at the end.
	PolicyNext Policy = "next"
	// PolicyLoopAll wraps back to the first item.
	PolicyLoopAll Policy = "loop_all"
	// PolicyLoopOne replays the current item.
	PolicyLoopOne Policy = "loop_one"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyNext, PolicyLoopAll, PolicyLoopOne:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown playlist policy %q", s)
}

// Item names a frame source by id. Sources are resolved lazily when
// the engine reaches the item, never on insertion. Duration zero means
// play the source's natural length.
type Item struct {
	Source   string
	Duration time.Duration
}

// Playlist is an ordered queue of items with a cursor. Mutations while
// a source is playing never disturb the item currently on air: they
// only change what later Advance calls see.
type Playlist struct {
	mu     sync.Mutex
	items  []Item
	cursor int
	policy Policy
}

func New(policy Policy) *Playlist {
	return &Playlist{policy: policy}
}

func (p *Playlist) Policy() Policy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policy
}

func (p *Playlist) SetPolicy(policy Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
}

// Items returns a copy of the queue.
func (p *Playlist) Items() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Item, len(p.items))
	copy(out, p.items)
	return out
}

func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Current returns the item under the cursor.
func (p *Playlist) Current() (Item, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor < 0 || p.cursor >= len(p.items) {
		return Item{}, -1, false
	}
	return p.items[p.cursor], p.cursor, true
}

// Advance moves the cursor after a source finished and returns the next
// item to play, or false when the policy says playback ends.
func (p *Playlist) Advance() (Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return Item{}, false
	}
	switch p.policy {
	case PolicyLoopOne:
		// Cursor stays put.
	case PolicyLoopAll:
		p.cursor = (p.cursor + 1) % len(p.items)
	default:
		if p.cursor+1 >= len(p.items) {
			return Item{}, false
		}
		p.cursor++
	}
	if p.cursor >= len(p.items) {
		p.cursor = 0
	}
	return p.items[p.cursor], true
}

// Jump moves the cursor to index and returns that item.
func (p *Playlist) Jump(index int) (Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.items) {
		return Item{}, fmt.Errorf("playlist index %d out of range [0,%d)", index, len(p.items))
	}
	p.cursor = index
	return p.items[index], nil
}

func (p *Playlist) Add(item Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, item)
}

// Remove deletes the item at index. Deleting before the cursor shifts
// the cursor along so the item on air keeps its position; deleting the
// item on air leaves the cursor pointing at its successor.
func (p *Playlist) Remove(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.items) {
		return fmt.Errorf("playlist index %d out of range [0,%d)", index, len(p.items))
	}
	p.items = append(p.items[:index], p.items[index+1:]...)
	if index < p.cursor {
		p.cursor--
	}
	if p.cursor >= len(p.items) {
		p.cursor = 0
	}
	return nil
}

// Move reorders an item. The cursor follows the item it pointed at.
func (p *Playlist) Move(from, to int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("playlist move %d->%d out of range [0,%d)", from, to, n)
	}
	item := p.items[from]
	p.items = append(p.items[:from], p.items[from+1:]...)
	p.items = append(p.items[:to], append([]Item{item}, p.items[to:]...)...)

	switch {
	case p.cursor == from:
		p.cursor = to
	case from < p.cursor && to >= p.cursor:
		p.cursor--
	case from > p.cursor && to <= p.cursor:
		p.cursor++
	}
	return nil
}

func (p *Playlist) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.cursor = 0
}

type fileItem struct {
	Source     string `json:"source"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

type fileFormat struct {
	Policy string     `json:"policy"`
	Items  []fileItem `json:"items"`
}

// Save writes the queue and policy as JSON. The cursor is transient
// state and not persisted.
func (p *Playlist) Save(path string) error {
	p.mu.Lock()
	ff := fileFormat{Policy: string(p.policy)}
	for _, item := range p.items {
		ff.Items = append(ff.Items, fileItem{
			Source:     item.Source,
			DurationMs: item.Duration.Milliseconds(),
		})
	}
	p.mu.Unlock()

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a playlist file written by Save.
func Load(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing playlist %s: %w", path, err)
	}
	policy, err := ParsePolicy(ff.Policy)
	if err != nil {
		return nil, err
	}
	p := New(policy)
	for _, item := range ff.Items {
		if item.Source == "" {
			return nil, fmt.Errorf("parsing playlist %s: item without source", path)
		}
		p.items = append(p.items, Item{
			Source:   item.Source,
			Duration: time.Duration(item.DurationMs) * time.Millisecond,
		})
	}
	return p, nil
}
