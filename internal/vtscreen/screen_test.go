package vtscreen

import "testing"

func TestWriteMarksDirtyLines(t *testing.T) {
	s := New(5, 10)
	s.ClearDirty()
	s.Write([]byte("hello"))
	dirty := s.DirtyLines()
	if len(dirty) == 0 {
		t.Fatal("expected at least one dirty line after writing")
	}
	if dirty[0] != 0 {
		t.Fatalf("dirty[0] = %d, want 0", dirty[0])
	}
	s.ClearDirty()
	if s.IsDirty() {
		t.Fatal("IsDirty true after ClearDirty")
	}
}

func TestRawLineReflectsPrintedGlyphs(t *testing.T) {
	s := New(3, 10)
	s.Write([]byte("ab"))
	line := s.RawLine(0)
	if line == nil {
		t.Fatal("RawLine(0) = nil")
	}
	if line.Literal[:2] != "ab" {
		t.Fatalf("literal = %q, want prefix ab", line.Literal)
	}
}

func TestResizePreservesDimensions(t *testing.T) {
	s := New(5, 10)
	s.Resize(8, 20)
	if s.rows != 8 || s.cols != 20 {
		t.Fatalf("rows/cols = %d/%d, want 8/20", s.rows, s.cols)
	}
}

func TestAttrGridSGRColorTracking(t *testing.T) {
	g := newAttrGrid(1, 10)
	g.Write([]byte("\x1b[31mred\x1b[0m"))
	line := g.RawLine(0)
	if line.Cells[0].FgName != "red" {
		t.Fatalf("fg = %q, want red", line.Cells[0].FgName)
	}
	if line.Cells[3].FgName != "default" {
		t.Fatalf("fg after reset = %q, want default", line.Cells[3].FgName)
	}
}
