// Package vtscreen projects one byte stream from the pty master into two
// parallel views: a glyph-only live mirror (github.com/vito/midterm, used
// for display/cursor/resize) and a styled cell grid (attrGrid, used for
// the set_rawline wire format), plus row-snapshot dirty-line tracking
// neither view exposes on its own.
package vtscreen

import (
	"sync"

	"github.com/vito/midterm"

	"ptyrc/internal/cellcodec"
)

// Screen is the driver-private virtual terminal buffer.
type Screen struct {
	mu sync.Mutex

	vt   *midterm.Terminal
	grid *attrGrid

	rows, cols int
	prevRows   []string
	dirty      map[int]bool
}

// New creates a Screen sized rows x cols.
func New(rows, cols int) *Screen {
	s := &Screen{
		vt:    midterm.NewTerminal(rows, cols),
		grid:  newAttrGrid(rows, cols),
		rows:  rows,
		cols:  cols,
		dirty: make(map[int]bool),
	}
	s.prevRows = make([]string, rows)
	return s
}

// Write feeds one chunk of child output into both projections and
// updates the dirty-line set by diffing each row's rendered content
// against its previous snapshot.
func (s *Screen) Write(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vt.Write(data)
	s.grid.Write(data)
	s.recomputeDirty()
}

// Resize updates both projections' dimensions and clamps the dirty-line
// tracking to the new row count.
func (s *Screen) Resize(rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vt.Resize(rows, cols)
	s.grid.Resize(rows, cols)
	s.rows, s.cols = rows, cols

	prev := s.prevRows
	s.prevRows = make([]string, rows)
	copy(s.prevRows, prev)
	s.dirty = make(map[int]bool)
	s.recomputeDirty()
}

// Display returns the glyph-only rendered rows, per midterm.
func (s *Screen) Display() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.vt.Content()...)
}

// Cursor returns the synthetic emulator's own cursor position
// (0-indexed), distinct from the real controlling terminal's cursor
// position reported via the capability oracle's DSR round trip.
func (s *Screen) Cursor() (row, col int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vt.Cursor.Y, s.vt.Cursor.X
}

// RawLine returns the styled cell line for a row, for set_rawline.
func (s *Screen) RawLine(row int) *cellcodec.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.RawLine(row)
}

// DirtyLines returns the ascending-sorted set of rows that changed since
// the last ClearDirty, matching the original's sort-ascending-for-
// efficiency convention (lower rows tend to repaint cheaper).
func (s *Screen) DirtyLines() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.dirty))
	for r := range s.dirty {
		out = append(out, r)
	}
	sortInts(out)
	return out
}

// ClearDirty empties the dirty-line set.
func (s *Screen) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = make(map[int]bool)
}

// IsDirty reports whether any row has pending changes.
func (s *Screen) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0
}

func (s *Screen) recomputeDirty() {
	content := s.vt.Content()
	for r := 0; r < s.rows && r < len(content); r++ {
		if r >= len(s.prevRows) {
			s.prevRows = append(s.prevRows, "")
		}
		if content[r] != s.prevRows[r] {
			s.dirty[r] = true
			s.prevRows[r] = content[r]
		}
	}
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}
