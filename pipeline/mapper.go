package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// Mapping translates canvas pixel positions to physical device
// addresses. table[canvasIndex] = physicalIndex. A nil *Mapping means
// identity (panel and network devices address pixels in canvas order).
type Mapping struct {
	w, h  int
	table []int
}

// NewMapping builds one of the built-in wiring layouts. Supported
// kinds are "linear", "serpentine" and "spiral".
func NewMapping(kind string, w, h int) (*Mapping, error) {
	m := &Mapping{w: w, h: h, table: make([]int, w*h)}
	switch kind {
	case "", "linear":
		for i := range m.table {
			m.table[i] = i
		}
	case "serpentine":
		// Odd rows are wired right-to-left.
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				phys := y*w + x
				if y%2 == 1 {
					phys = y*w + (w - 1 - x)
				}
				m.table[y*w+x] = phys
			}
		}
	case "spiral":
		m.buildSpiral()
	default:
		return nil, fmt.Errorf("unknown mapping kind %q", kind)
	}
	return m, nil
}

// buildSpiral walks outward from the center; the n-th canvas position
// visited becomes physical index n.
func (m *Mapping) buildSpiral() {
	total := m.w * m.h
	x, y := m.w/2, m.h/2
	dx := []int{1, 0, -1, 0}
	dy := []int{0, 1, 0, -1}
	dir, steps, stepCount, turns := 0, 1, 0, 0

	phys := 0
	visited := make([]bool, total)
	for phys < total {
		if x >= 0 && x < m.w && y >= 0 && y < m.h {
			idx := y*m.w + x
			if !visited[idx] {
				visited[idx] = true
				m.table[idx] = phys
				phys++
			}
		}
		x += dx[dir]
		y += dy[dir]
		stepCount++
		if stepCount >= steps {
			stepCount = 0
			dir = (dir + 1) % 4
			turns++
			if turns%2 == 0 {
				steps++
			}
		}
	}
}

type mappingFile struct {
	Mapping []int `json:"mapping"`
}

// LoadMapping reads a custom wiring table from a JSON file of the form
// {"mapping": [...]} where entry i is the physical index of canvas
// pixel i.
func LoadMapping(path string, w, h int) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	var mf mappingFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	if len(mf.Mapping) != w*h {
		return nil, fmt.Errorf("mapping %s: %d entries, want %d", path, len(mf.Mapping), w*h)
	}
	seen := make([]bool, w*h)
	for i, phys := range mf.Mapping {
		if phys < 0 || phys >= w*h {
			return nil, fmt.Errorf("mapping %s: entry %d out of range: %d", path, i, phys)
		}
		if seen[phys] {
			return nil, fmt.Errorf("mapping %s: physical index %d mapped twice", path, phys)
		}
		seen[phys] = true
	}
	return &Mapping{w: w, h: h, table: mf.Mapping}, nil
}

// Physical returns the strip address of canvas position (x, y).
func (m *Mapping) Physical(x, y int) int {
	return m.table[y*m.w+x]
}

// apply reorders packed RGB triplets from canvas order into physical
// order. src and dst must both hold w*h*3 bytes and must not alias.
func (m *Mapping) apply(src, dst []byte) {
	for canvas, phys := range m.table {
		copy(dst[phys*3:phys*3+3], src[canvas*3:canvas*3+3])
	}
}
