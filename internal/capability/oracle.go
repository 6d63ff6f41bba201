// Package capability is the terminal-capability oracle: the set of escape
// sequences the driver needs (alternate screen, cursor addressing, SGR
// attributes, cursor-position report framing) resolved once at startup
// from the real terminfo database instead of shelling out to tput per
// call.
package capability

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/xo/terminfo"
)

// Oracle holds every escape sequence the rest of the module needs,
// resolved once. A nil-ish zero Oracle (Available()==false) degrades
// every sequence to empty, matching a non-terminal stdout.
type Oracle struct {
	available bool
	profile   termenv.Profile

	smcup, rmcup   []byte
	sc, rc         []byte
	clear          []byte
	el, el1, ed    []byte
	reset          []byte
	bold, dim      []byte
	italic         []byte
	underline      []byte
	strikethrough  []byte
	blink          []byte
	reverse        []byte
	standout       []byte
	invisible      []byte
	sgr0           []byte
	home           []byte

	cursorQuery           []byte
	cursorReportPrefix    []byte
	cursorReportSuffix    []byte
	cursorReportCharset   []byte

	setaf0, setab0 []byte

	ti *terminfo.Terminfo
}

// Load resolves an Oracle against the terminal attached to out. If out is
// not a terminal, the returned Oracle is available()==false and every
// sequence is empty: the driver then forgoes alternate-screen handling
// per the capability contract.
func Load(out *os.File) (*Oracle, error) {
	o := &Oracle{profile: termenv.Ascii}
	if out == nil || !isatty.IsTerminal(out.Fd()) {
		return o, nil
	}

	ti, err := terminfo.LoadFromEnv()
	if err != nil {
		return o, nil
	}
	o.ti = ti
	o.available = true
	o.profile = termenv.NewOutput(out).Profile

	o.smcup = o.str(terminfo.EnterCaMode)
	o.rmcup = o.str(terminfo.ExitCaMode)
	o.sc = o.str(terminfo.SaveCursor)
	o.rc = o.str(terminfo.RestoreCursor)
	o.clear = o.str(terminfo.ClearScreen)
	o.el = o.str(terminfo.ClrEol)
	o.el1 = o.str(terminfo.ClrBol)
	o.ed = o.str(terminfo.ClrEos)
	o.reset = o.str(terminfo.Reset1String)
	o.bold = o.str(terminfo.EnterBoldMode)
	o.dim = o.str(terminfo.EnterDimMode)
	o.italic = o.str(terminfo.EnterItalicsMode)
	o.underline = o.str(terminfo.EnterUnderlineMode)
	o.blink = o.str(terminfo.EnterBlinkMode)
	o.reverse = o.str(terminfo.EnterReverseMode)
	o.standout = o.str(terminfo.EnterStandoutMode)
	o.invisible = o.str(terminfo.EnterSecureMode)
	o.sgr0 = o.str(terminfo.ExitAttributeMode)
	o.home = o.str(terminfo.CursorHome)
	o.strikethrough = bytes.Replace(o.underline, []byte("4m"), []byte("9m"), 1)

	o.setaf0 = []byte(o.ti.Printf(terminfo.SetAForeground, 0))
	o.setab0 = []byte(o.ti.Printf(terminfo.SetABackground, 0))

	o.initCursorReport()

	return o, nil
}

func (o *Oracle) str(capName int) []byte {
	if o.ti == nil {
		return nil
	}
	s := o.ti.Printf(capName)
	return []byte(s)
}

// initCursorReport derives the request/response framing for the cursor
// position report (u7 request, u6 response template) by substituting two
// distinguishable sentinel coordinates and diffing the surrounding bytes,
// exactly as the original tput-based oracle does.
func (o *Oracle) initCursorReport() {
	o.cursorQuery = o.str(terminfo.User7String) // u7: cursor position request

	tmpl := o.ti.Printf(terminfo.User6String, 11111, 22222) // u6: report template
	o.cursorReportCharset = []byte("0123456789;R")
	o.cursorReportPrefix, o.cursorReportSuffix = deriveCursorFraming([]byte(tmpl))
}

// deriveCursorFraming splits a u6 template rendered with sentinel
// coordinates 11111/22222 into the literal bytes that come before and
// after the two coordinates, so a real report like "\x1b[24;80R" can
// later be parsed back into (row, col) by trimming the same prefix and
// suffix. It matches the first four digits of each sentinel, so a
// template whose %i increment renders them as 11112/22223 splits the
// same way.
func deriveCursorFraming(raw []byte) (prefix, suffix []byte) {
	idx := bytes.Index(raw, []byte("1111"))
	if idx < 0 {
		return raw, nil
	}
	idx2 := bytes.Index(raw, []byte("2222"))
	last := idx
	if idx2 > last {
		last = idx2
	}
	prefix = raw[:idx]
	if last+5 <= len(raw) {
		suffix = raw[last+5:]
	}
	return prefix, suffix
}

// Available reports whether real sequences were resolved.
func (o *Oracle) Available() bool { return o.available }

// ColorProfile reports the terminal's color depth as detected by termenv
// (Ascii when the oracle is unavailable). No caller consults it: cellcodec
// renders 24-bit cells as 24-bit escapes and does not downsample them.
func (o *Oracle) ColorProfile() termenv.Profile { return o.profile }

func (o *Oracle) SMCUP() []byte { return o.smcup }
func (o *Oracle) RMCUP() []byte { return o.rmcup }
func (o *Oracle) SaveCursor() []byte { return o.sc }
func (o *Oracle) RestoreCursor() []byte { return o.rc }
func (o *Oracle) Clear() []byte { return o.clear }
func (o *Oracle) ClearToEOL() []byte { return o.el }
func (o *Oracle) ClearToBOL() []byte { return o.el1 }
func (o *Oracle) ClearToEOS() []byte { return o.ed }
func (o *Oracle) Reset() []byte { return o.reset }
func (o *Oracle) Bold() []byte { return o.bold }
func (o *Oracle) Dim() []byte { return o.dim }
func (o *Oracle) Italic() []byte { return o.italic }
func (o *Oracle) Underline() []byte { return o.underline }
func (o *Oracle) Strikethrough() []byte { return o.strikethrough }
func (o *Oracle) Blink() []byte { return o.blink }
func (o *Oracle) Reverse() []byte { return o.reverse }
func (o *Oracle) Standout() []byte { return o.standout }
func (o *Oracle) Invisible() []byte { return o.invisible }
func (o *Oracle) SGR0() []byte { return o.sgr0 }
func (o *Oracle) Home() []byte { return o.home }

// CUP returns the move-cursor-to(row, col) sequence, 0-indexed.
func (o *Oracle) CUP(row, col int) []byte {
	if o.ti == nil {
		return nil
	}
	return []byte(o.ti.Printf(terminfo.CursorAddress, row, col))
}

// SetForeground returns the SGR sequence for an ANSI color code (30-37,
// 90-97 for bright). terminfo's setaf parameter is a palette index, not
// an SGR code, so feeding it code directly would produce a 256-color
// escape instead of the requested \x1b[<code>m. Instead this derives the
// sequence the same way the original does: render setaf for palette
// index 0 (yielding the literal "\x1b[30m"), then substitute the literal
// "30" for the requested code.
func (o *Oracle) SetForeground(code int) []byte {
	if o.ti == nil {
		return nil
	}
	return substituteColorCode(o.setaf0, "30", code)
}

// SetBackground returns the SGR sequence for an ANSI color code, derived
// from setab0 the same way SetForeground derives from setaf0.
func (o *Oracle) SetBackground(code int) []byte {
	if o.ti == nil {
		return nil
	}
	return substituteColorCode(o.setab0, "40", code)
}

// substituteColorCode replaces the literal base-code substring in a
// rendered setaf0/setab0 template with the requested color code.
func substituteColorCode(template []byte, literal string, code int) []byte {
	return bytes.Replace(template, []byte(literal), []byte(strconv.Itoa(code)), 1)
}

// SetForeground256 returns a 24-bit foreground color escape sequence.
func (o *Oracle) SetForeground256(r, g, b byte) []byte {
	return []byte(fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b))
}

// SetBackground256 returns a 24-bit background color escape sequence.
func (o *Oracle) SetBackground256(r, g, b byte) []byte {
	return []byte(fmt.Sprintf("\x1b[48;2;%d;%d;%dm", r, g, b))
}

// CursorQuery returns the byte sequence that requests a cursor position
// report (DSR/u7).
func (o *Oracle) CursorQuery() []byte { return o.cursorQuery }

// CursorReportFraming returns the prefix/suffix surrounding the two
// coordinates in a cursor position report, plus the charset of bytes that
// can legally appear inside it.
func (o *Oracle) CursorReportFraming() (prefix, suffix, charset []byte) {
	return o.cursorReportPrefix, o.cursorReportSuffix, o.cursorReportCharset
}
