package pilotside

import (
	"testing"

	"ptyrc/internal/cellcodec"
)

func TestMirrorSetLineGrowsAndRequestsMissing(t *testing.T) {
	m := newMirror()

	var requested []int
	m.SetLine(3, "hello", 0, func(missing []int) {
		requested = append(requested, missing...)
	})

	if got := m.Display(); len(got) != 4 || got[3] != "hello" {
		t.Fatalf("display = %#v", got)
	}
	if len(requested) != 3 || requested[0] != 0 || requested[2] != 2 {
		t.Fatalf("requested missing rows = %v, want [0 1 2]", requested)
	}
}

func TestMirrorSetLineTruncatesToMaxRows(t *testing.T) {
	m := newMirror()
	m.SetLine(0, "a", 0, nil)
	m.SetLine(1, "b", 0, nil)
	m.SetLine(2, "c", 2, nil)

	if got := m.Display(); len(got) != 2 {
		t.Fatalf("display len = %d, want 2 after maxRows=2 clamp", len(got))
	}
}

func TestMirrorRawLineOnlyValidWhenLiteralMatches(t *testing.T) {
	m := newMirror()
	m.SetLine(0, "hi", 0, nil)

	cell, err := cellcodec.NewCell("h", "default", "default", false, false, false, false, false, false)
	if err != nil {
		t.Fatal(err)
	}
	line := cellcodec.NewLine([]*cellcodec.Cell{cell})
	m.SetRawLine(0, line)

	if got := m.RawLine(0); got != nil {
		t.Fatalf("expected stale raw line (literal %q != display %q) to be rejected", line.Literal, "hi")
	}

	m.SetLine(0, "h", 0, nil)
	if got := m.RawLine(0); got == nil {
		t.Fatal("expected raw line to become valid once literal matches display")
	}
}
