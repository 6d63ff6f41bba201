// Package cellcodec implements the fixed-width styled-cell wire format:
// one Cell packs to exactly 16 bytes (1 flag byte, 3 fg bytes, 3 bg
// bytes, 1 length byte, 8 glyph bytes), matching the layout the pilot
// and driver exchange for set_rawline payloads.
package cellcodec

import (
	"encoding/hex"
	"fmt"
)

// PackedSize is the wire size of one packed Cell.
const PackedSize = 16

const maxGlyphBytes = 8

// Cell is one styled terminal cell: a glyph (usually one rune, encoded as
// UTF-8) plus SGR attributes.
type Cell struct {
	Data          []byte
	FgName        string // "default", "red", "brightred", or a 6-hex-digit 256/24-bit code
	BgName        string
	Bold          bool
	Italic        bool
	Underscore    bool
	Strikethrough bool
	Reverse       bool
	Blink         bool

	fgCode  int
	fgIs256 bool
	bgCode  int
	bgIs256 bool
}

// NewCell validates and normalizes a cell's color names and glyph bytes.
func NewCell(data string, fg, bg string, bold, italic, underscore, strikethrough, reverse, blink bool) (*Cell, error) {
	if fg == "" {
		fg = "default"
	}
	if bg == "" {
		bg = "default"
	}
	c := &Cell{
		Data:          []byte(data),
		FgName:        fg,
		BgName:        bg,
		Bold:          bold,
		Italic:        italic,
		Underscore:    underscore,
		Strikethrough: strikethrough,
		Reverse:       reverse,
		Blink:         blink,
	}
	if len(c.Data) > maxGlyphBytes {
		return nil, fmt.Errorf("cellcodec: glyph %q exceeds %d bytes", data, maxGlyphBytes)
	}
	var err error
	c.fgCode, c.fgIs256, err = colorToCode(fg, true)
	if err != nil {
		return nil, err
	}
	c.bgCode, c.bgIs256, err = colorToCode(bg, false)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// colorToCode mirrors charspec.color_to_code: returns the base ANSI code
// (30-37/90-97 for foreground, 40-47/100-107 for background) and whether
// the name is instead a literal 24-bit hex color.
func colorToCode(name string, foreground bool) (int, bool, error) {
	base := 40
	if foreground {
		base = 30
	}

	val := base
	rest := name
	if len(rest) >= 6 && rest[:6] == "bright" {
		val += 60
		rest = rest[6:]
	}

	switch {
	case rest == "black":
		return val, false, nil
	case rest == "red":
		return val + 1, false, nil
	case rest == "green":
		return val + 2, false, nil
	case rest == "brown", rest == "yellow":
		return val + 3, false, nil
	case rest == "blue":
		return val + 4, false, nil
	case rest == "magenta":
		return val + 5, false, nil
	case rest == "cyan":
		return val + 6, false, nil
	case rest == "white":
		return val + 7, false, nil
	case rest == "default":
		return val + 9, false, nil
	}

	raw, err := hex.DecodeString(name)
	if err != nil || len(raw) != 3 {
		return 0, false, fmt.Errorf("cellcodec: invalid color name %q", name)
	}
	return val, true, nil
}

func (c *Cell) fgRGB() [3]byte {
	raw, _ := hex.DecodeString(c.FgName)
	var out [3]byte
	copy(out[:], raw)
	return out
}

func (c *Cell) bgRGB() [3]byte {
	raw, _ := hex.DecodeString(c.BgName)
	var out [3]byte
	copy(out[:], raw)
	return out
}

func (c *Cell) flagByte() byte {
	var f byte
	if c.Bold {
		f |= 1 << 0
	}
	if c.Italic {
		f |= 1 << 1
	}
	if c.Underscore {
		f |= 1 << 2
	}
	if c.Strikethrough {
		f |= 1 << 3
	}
	if c.Reverse {
		f |= 1 << 4
	}
	if c.Blink {
		f |= 1 << 5
	}
	if c.fgIs256 {
		f |= 1 << 6
	}
	if c.bgIs256 {
		f |= 1 << 7
	}
	return f
}

// Pack encodes the cell into its 16-byte wire form.
func (c *Cell) Pack() [PackedSize]byte {
	var out [PackedSize]byte
	out[0] = c.flagByte()

	if c.fgIs256 {
		copy(out[1:4], c.fgRGB()[:])
	} else {
		out[1] = byte(c.fgCode)
	}
	if c.bgIs256 {
		copy(out[4:7], c.bgRGB()[:])
	} else {
		out[4] = byte(c.bgCode)
	}

	n := len(c.Data)
	if n > maxGlyphBytes {
		n = maxGlyphBytes
	}
	out[7] = byte(n)
	copy(out[8:8+n], c.Data[:n])
	return out
}

// Unpack decodes a 16-byte wire cell.
func Unpack(packed [PackedSize]byte) (*Cell, error) {
	flags := packed[0]
	bold := flags&(1<<0) != 0
	italic := flags&(1<<1) != 0
	underscore := flags&(1<<2) != 0
	strike := flags&(1<<3) != 0
	reverse := flags&(1<<4) != 0
	blink := flags&(1<<5) != 0
	fgIs256 := flags&(1<<6) != 0
	bgIs256 := flags&(1<<7) != 0

	var fg, bg string
	if fgIs256 {
		fg = hex.EncodeToString(packed[1:4])
	} else {
		var err error
		fg, err = decodeBaseColor(packed[1], 90)
		if err != nil {
			return nil, err
		}
	}
	if bgIs256 {
		bg = hex.EncodeToString(packed[4:7])
	} else {
		var err error
		bg, err = decodeBaseColor(packed[4], 100)
		if err != nil {
			return nil, err
		}
	}

	n := int(packed[7])
	if n > maxGlyphBytes {
		return nil, fmt.Errorf("cellcodec: glyph length %d exceeds %d", n, maxGlyphBytes)
	}
	data := string(packed[8 : 8+n])

	return NewCell(data, fg, bg, bold, italic, underscore, strike, reverse, blink)
}

// decodeBaseColor is the inverse of colorToCode. brightThreshold is 90 for
// foreground codes, 100 for background codes: a code at or above it is
// "bright". The color suffix comes from code%10 directly in both the
// normal (30s/40s) and bright (90s/100s) ranges, since the two ranges
// share the same mod-10 pattern by construction.
func decodeBaseColor(code byte, brightThreshold int) (string, error) {
	name := ""
	c := int(code)
	if c/brightThreshold > 0 {
		name = "bright"
	}
	switch c % 10 {
	case 0:
		name += "black"
	case 1:
		name += "red"
	case 2:
		name += "green"
	case 3:
		name += "brown"
	case 4:
		name += "blue"
	case 5:
		name += "magenta"
	case 6:
		name += "cyan"
	case 7:
		name += "white"
	case 8:
		return "", fmt.Errorf("cellcodec: color code %d is reserved", code)
	case 9:
		name += "default"
	}
	if name == "brightdefault" {
		return "", fmt.Errorf("cellcodec: color name %q is forbidden", name)
	}
	return name, nil
}
