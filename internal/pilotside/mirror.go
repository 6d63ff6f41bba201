// Package pilotside implements the pilot half of the pair: it dials the
// driver's rendezvous port, mirrors the remote screen into a Mirror, and
// exposes a scripting-friendly Pilot frontend plus an embedded shell.
package pilotside

import (
	"sync"

	"ptyrc/internal/cellcodec"
)

// Mirror holds the pilot's view of the remote screen: plain-text lines
// kept current by set_line, and styled lines kept current by
// set_rawline. Both are populated only once the matching stream is
// enabled (enable_stream_lines/enable_stream_rawlines).
type Mirror struct {
	mu         sync.Mutex
	display    []string
	rawDisplay map[int]*cellcodec.Line
}

func newMirror() *Mirror {
	return &Mirror{rawDisplay: make(map[int]*cellcodec.Line)}
}

// SetLine mirrors server_handler.set_line: grows display with blank rows
// up to where, recording which rows are still missing so the caller can
// request them explicitly.
func (m *Mirror) SetLine(where int, line string, maxRows int, missing func([]int)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if where >= len(m.display) {
		current := len(m.display)
		if where > current {
			gap := make([]int, 0, where-current)
			for i := current; i < where; i++ {
				gap = append(gap, i)
			}
			if len(gap) > 0 && missing != nil {
				missing(gap)
			}
		}
		for len(m.display) <= where {
			m.display = append(m.display, "")
		}
	}
	m.display[where] = line

	if maxRows > 0 && maxRows < len(m.display) {
		m.display = m.display[:maxRows]
	}
}

// SetRawLine records one styled row decoded from a set_rawline payload.
func (m *Mirror) SetRawLine(where int, line *cellcodec.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawDisplay[where] = line
}

// Display returns a snapshot of the current plain-text rows.
func (m *Mirror) Display() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.display...)
}

// RawLine returns the styled row at index i, if one has been received
// and it still matches the current plain-text literal at that row (a
// stale raw row, left over from before a resize, is worse than none).
func (m *Mirror) RawLine(i int) *cellcodec.Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.display) {
		return nil
	}
	raw, ok := m.rawDisplay[i]
	if !ok || raw.Literal != m.display[i] {
		return nil
	}
	return raw
}

// Len reports how many rows display currently holds.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.display)
}
