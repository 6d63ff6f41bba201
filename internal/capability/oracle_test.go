package capability

import (
	"bytes"
	"testing"
)

func TestDeriveCursorFramingTypicalVT100Template(t *testing.T) {
	// A u6 template without %i, rendered with (11111, 22222) for (p1, p2),
	// gives this; with %i the digits come out as 11112/22223.
	raw := []byte("\x1b[11111;22222R")
	prefix, suffix := deriveCursorFraming(raw)
	if string(prefix) != "\x1b[" {
		t.Fatalf("prefix = %q, want \\x1b[", prefix)
	}
	if string(suffix) != "R" {
		t.Fatalf("suffix = %q, want R", suffix)
	}
}

func TestDeriveCursorFramingNoSentinel(t *testing.T) {
	raw := []byte("\x1b[6n")
	prefix, suffix := deriveCursorFraming(raw)
	if !bytes.Equal(prefix, raw) {
		t.Fatalf("prefix = %q, want full raw template", prefix)
	}
	if suffix != nil {
		t.Fatalf("suffix = %q, want nil", suffix)
	}
}

func TestOracleUnavailableReturnsEmptySequences(t *testing.T) {
	o := &Oracle{}
	if o.Available() {
		t.Fatal("zero-value Oracle reported available")
	}
	if o.SMCUP() != nil || o.Bold() != nil || o.CUP(1, 1) != nil {
		t.Fatal("zero-value Oracle returned non-empty sequences")
	}
}

func TestSubstituteColorCodeBrightCode(t *testing.T) {
	// setaf rendered for palette index 0 on a typical ANSI terminal.
	setaf0 := []byte("\x1b[30m")
	got := substituteColorCode(setaf0, "30", 93) // brightyellow foreground
	if string(got) != "\x1b[93m" {
		t.Fatalf("substituteColorCode(%q, 93) = %q, want \\x1b[93m", setaf0, got)
	}
}

func TestSubstituteColorCodeBackground(t *testing.T) {
	setab0 := []byte("\x1b[40m")
	got := substituteColorCode(setab0, "40", 101) // brightred background
	if string(got) != "\x1b[101m" {
		t.Fatalf("substituteColorCode(%q, 101) = %q, want \\x1b[101m", setab0, got)
	}
}
