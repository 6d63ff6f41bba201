package cellcodec

import (
	"strings"

	"ptyrc/internal/capability"
)

// Line is one row of styled cells plus the cached plain-text literal used
// for text_at and dirty-line diffing.
type Line struct {
	Cells   []*Cell
	Literal string
}

// NewLine builds a Line and its cached literal from a cell slice.
func NewLine(cells []*Cell) *Line {
	var b strings.Builder
	for _, c := range cells {
		b.Write(c.Data)
	}
	return &Line{Cells: cells, Literal: b.String()}
}

// PackLine packs every cell in order; the wire payload is this
// concatenation, PackedSize bytes per cell.
func PackLine(cells []*Cell) []byte {
	out := make([]byte, 0, len(cells)*PackedSize)
	for _, c := range cells {
		packed := c.Pack()
		out = append(out, packed[:]...)
	}
	return out
}

// UnpackLine splits a wire payload back into cells. len(raw) must be a
// multiple of PackedSize.
func UnpackLine(raw []byte) (*Line, error) {
	cells := make([]*Cell, 0, len(raw)/PackedSize)
	for off := 0; off+PackedSize <= len(raw); off += PackedSize {
		var packed [PackedSize]byte
		copy(packed[:], raw[off:off+PackedSize])
		c, err := Unpack(packed)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return NewLine(cells), nil
}

// RenderOpts controls Line.Render, mirroring linespec.render's keyword
// arguments.
type RenderOpts struct {
	StartClean bool
	EndClean   bool
	MaxLen     int // 0 means unlimited
	CursorAt   int // 1-based; 0 means no cursor highlight
}

// Render produces the escape-sequence-annotated string for this line,
// emitting SGR transitions only where consecutive cells' attributes
// differ (run-length SGR diffing), matching linespec.render.
func (l *Line) Render(o *capability.Oracle, opts RenderOpts) string {
	var b strings.Builder
	if opts.StartClean {
		b.Write(o.SGR0())
	}

	var lastSeq []byte
	haveLast := false
	for i, cell := range l.Cells {
		if opts.MaxLen > 0 && i >= opts.MaxLen {
			continue
		}
		render := cell
		if opts.CursorAt > 0 && i == opts.CursorAt-1 {
			toggled := *cell
			toggled.Reverse = !cell.Reverse
			render = &toggled
		}

		seq := render.seq(o)
		if !haveLast || !bytesEqual(lastSeq, seq) {
			b.Write(o.SGR0())
			b.Write(seq)
		}
		b.Write(render.Data)
		lastSeq = seq
		haveLast = true
	}

	if opts.EndClean {
		b.Write(o.SGR0())
	}
	return b.String()
}

// seq is the concatenation of this cell's color and attribute escape
// sequences. It is recomputed for every cell on every render; there is
// no cache (at the scale of one connection's worth of distinct cells, a
// cache buys nothing).
func (c *Cell) seq(o *capability.Oracle) []byte {
	var out []byte
	if c.fgIs256 {
		rgb := c.fgRGB()
		out = append(out, o.SetForeground256(rgb[0], rgb[1], rgb[2])...)
	} else {
		out = append(out, o.SetForeground(c.fgCode)...)
	}
	if c.bgIs256 {
		rgb := c.bgRGB()
		out = append(out, o.SetBackground256(rgb[0], rgb[1], rgb[2])...)
	} else {
		out = append(out, o.SetBackground(c.bgCode)...)
	}
	if c.Bold {
		out = append(out, o.Bold()...)
	}
	if c.Italic {
		out = append(out, o.Italic()...)
	}
	if c.Underscore {
		out = append(out, o.Underline()...)
	}
	if c.Strikethrough {
		out = append(out, o.Strikethrough()...)
	}
	if c.Reverse {
		out = append(out, o.Reverse()...)
	}
	if c.Blink {
		out = append(out, o.Blink()...)
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
