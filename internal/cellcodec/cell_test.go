package cellcodec

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	c, err := NewCell("x", "brightred", "default", true, false, true, false, false, false)
	if err != nil {
		t.Fatalf("NewCell: %v", err)
	}
	packed := c.Pack()
	if len(packed) != PackedSize {
		t.Fatalf("packed size = %d, want %d", len(packed), PackedSize)
	}

	got, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.FgName != "brightred" || got.BgName != "default" {
		t.Fatalf("colors = %q/%q, want brightred/default", got.FgName, got.BgName)
	}
	if !got.Bold || got.Italic || !got.Underscore {
		t.Fatalf("flags mismatch: %+v", got)
	}
	if string(got.Data) != "x" {
		t.Fatalf("data = %q, want x", got.Data)
	}
}

func TestPackUnpack256Color(t *testing.T) {
	c, err := NewCell("z", "1a2b3c", "default", false, false, false, false, false, false)
	if err != nil {
		t.Fatalf("NewCell: %v", err)
	}
	got, err := Unpack(c.Pack())
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.FgName != "1a2b3c" {
		t.Fatalf("fg = %q, want 1a2b3c", got.FgName)
	}
}

func TestGlyphTooLongRejected(t *testing.T) {
	if _, err := NewCell("123456789", "default", "default", false, false, false, false, false, false); err == nil {
		t.Fatal("expected error for 9-byte glyph")
	}
}

func TestBrightDefaultForbidden(t *testing.T) {
	var packed [PackedSize]byte
	packed[0] = 0 // not 256-color
	packed[1] = 99 // 99/90>0 bright, 99%10==9 default -> "brightdefault"
	if _, err := Unpack(packed); err == nil {
		t.Fatal("expected error for brightdefault")
	}
}

func TestPackLineUnpackLineRoundTrip(t *testing.T) {
	a, _ := NewCell("a", "red", "default", false, false, false, false, false, false)
	b, _ := NewCell("b", "default", "blue", true, false, false, false, false, false)
	raw := PackLine([]*Cell{a, b})
	if len(raw) != 2*PackedSize {
		t.Fatalf("raw len = %d, want %d", len(raw), 2*PackedSize)
	}
	line, err := UnpackLine(raw)
	if err != nil {
		t.Fatalf("UnpackLine: %v", err)
	}
	if line.Literal != "ab" {
		t.Fatalf("literal = %q, want ab", line.Literal)
	}
}
