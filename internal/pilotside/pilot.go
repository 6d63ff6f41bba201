package pilotside

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ptyrc/internal/cellcodec"
	"ptyrc/internal/protocol"
)

// Pilot is the user-facing frontend a userscript's Main(*Pilot) drives.
// Grounded on ptyrc/pilot.py's pilot_frontend.
type Pilot struct {
	backend *Backend
}

// Connected reports whether the active driver connection is currently
// alive.
func (p *Pilot) Connected() bool {
	h := p.backend.ActiveHandler()
	return h != nil && h.IsAlive()
}

// handler blocks (up to backend.Timeout) until a live driver connection
// is available, mirroring pilot_frontend.handler.
func (p *Pilot) handler() (*backendHandle, error) {
	waited := time.Duration(0)
	for {
		h := p.backend.ActiveHandler()
		m := p.backend.ActiveMirror()
		if h != nil && h.IsAlive() {
			return &backendHandle{h: h, m: m}, nil
		}
		time.Sleep(100 * time.Millisecond)
		waited += 100 * time.Millisecond
		if waited > p.backend.Timeout {
			return nil, fmt.Errorf("pilotside: no remote to be found")
		}
	}
}

type backendHandle struct {
	h *protocol.Handler
	m *Mirror
}

// Argv returns the remote child's command line, once the driver has
// reported it.
func (p *Pilot) Argv() ([]string, error) {
	bh, err := p.handler()
	if err != nil {
		return nil, err
	}
	v, ok := bh.h.Value("argv_cmd")
	if !ok {
		return nil, nil
	}
	argv, _ := v.([]string)
	return argv, nil
}

// Cursor returns the remote cursor position as (col, row), as parsed from
// the real terminal's cursor-position report: 1-based, and (0, 0) before
// any report has arrived.
func (p *Pilot) Cursor() ([2]int, error) {
	bh, err := p.handler()
	if err != nil {
		return [2]int{}, err
	}
	v, ok := bh.h.Value("cursor_position")
	if !ok {
		return [2]int{}, nil
	}
	pos, _ := v.([2]int)
	return pos, nil
}

// Size returns the remote terminal size as (cols, rows).
func (p *Pilot) Size() ([2]int, error) {
	bh, err := p.handler()
	if err != nil {
		return [2]int{}, err
	}
	v, ok := bh.h.Value("terminal_size")
	if !ok {
		return [2]int{}, nil
	}
	sz, _ := v.([2]int)
	return sz, nil
}

// WaitForDriver blocks, optionally printing an animated spinner to
// stdout, until a driver connection is alive.
func (p *Pilot) WaitForDriver(animated bool) {
	for !p.Connected() {
		if animated {
			frame := "|/-\\"[int(time.Now().UnixMilli()/100)%4]
			fmt.Printf(" [%c] connecting...\r", frame)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if animated {
		fmt.Print(strings.Repeat(" ", 20) + "\r")
	}
}

// TextAt returns the plain-text content of one row, trimmed of trailing
// spaces, using 1-based row numbers by default.
func (p *Pilot) TextAt(row int, firstRowIsOne bool) (string, error) {
	bh, err := p.handler()
	if err != nil {
		return "", err
	}
	if firstRowIsOne {
		row--
	}
	display := bh.m.Display()
	if row < 0 || row >= len(display) {
		return "", nil
	}
	return strings.TrimRight(display[row], " "), nil
}

// Input sends raw bytes to be written to the remote child's tty.
func (p *Pilot) Input(data string) error {
	bh, err := p.handler()
	if err != nil {
		return err
	}
	return bh.h.Send("write_to_tty", []byte(data))
}

// Intercept installs callback as the stdin-stream observer until it
// returns false, printing raw stdin bytes to stdout when callback is
// nil. Mirrors pilot_frontend.intercept, using Handler.SetStdinSink
// instead of attribute monkey-patching.
func (p *Pilot) Intercept(callback func(data []byte) bool) error {
	bh, err := p.handler()
	if err != nil {
		return err
	}
	bh.h.Send("command", "enable_stream_stdin")

	done := make(chan struct{})
	restore := bh.h.SetStdinSink(func(data []byte) {
		ok := true
		if callback != nil {
			ok = callback(data)
		} else {
			fmt.Print(string(data))
		}
		if !ok {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})
	defer restore()

	<-done
	return nil
}

// Draw writes a styled glyph run at (row, col), 1-indexed by default.
// When overlay is false, the run is clipped at the first cell whose
// last-known display glyph isn't a space, so the drawing never covers
// existing non-blank content. Mirrors pilot_frontend.draw.
func (p *Pilot) Draw(row, col int, char string, attrs *cellcodec.Cell, overlay, firstRowColIsOne bool) error {
	bh, err := p.handler()
	if err != nil {
		return err
	}
	if !firstRowColIsOne {
		row++
		col++
	}

	if !overlay && row >= 1 && col >= 1 {
		char = clipToBlankRun(bh.m.Display(), row, col, char)
	}

	type drawRequest struct {
		Where [2]int          `json:"where"`
		Char  string          `json:"char"`
		Attrs *json.RawMessage `json:"attrs"`
	}
	req := drawRequest{Where: [2]int{row, col}, Char: char}
	if attrs != nil {
		raw, _ := json.Marshal(struct {
			Fg, Bg                                         string
			Bold, Italic, Underscore, Strikethrough, Reverse, Blink bool
		}{attrs.FgName, attrs.BgName, attrs.Bold, attrs.Italic, attrs.Underscore, attrs.Strikethrough, attrs.Reverse, attrs.Blink})
		rm := json.RawMessage(raw)
		req.Attrs = &rm
	}
	return bh.h.Send("draw", req)
}

// clipToBlankRun truncates char at the first offset whose corresponding
// display cell (1-indexed row/col) is out of bounds or isn't a space,
// mirroring pilot_frontend.draw's overlay=false clipping pass.
func clipToBlankRun(display []string, row, col int, char string) string {
	var out strings.Builder
	for xoffset, newc := range []rune(char) {
		if row-1 >= len(display) {
			break
		}
		line := []rune(display[row-1])
		idx := col - 1 + xoffset
		if idx >= len(line) || line[idx] != ' ' {
			break
		}
		out.WriteRune(newc)
	}
	return out.String()
}

// Draw2D draws a matrix of rows starting at (row, col).
func (p *Pilot) Draw2D(row, col int, charRows []string, attrs *cellcodec.Cell, overlay bool) error {
	for i, line := range charRows {
		if err := p.Draw(row+i, col, line, attrs, overlay, true); err != nil {
			return err
		}
	}
	return nil
}

// DrawAnim draws each glyph of a sequence in turn, pausing stepsize
// between frames, optionally clearing afterward.
func (p *Pilot) DrawAnim(row, col int, frames []string, stepsize time.Duration, clearAfter bool, attrs *cellcodec.Cell, overlay bool) error {
	maxLen := 0
	for _, f := range frames {
		if len(f) > maxLen {
			maxLen = len(f)
		}
		if err := p.Draw(row, col, f, attrs, overlay, true); err != nil {
			return err
		}
		time.Sleep(stepsize)
	}
	if clearAfter {
		return p.Draw(row, col, strings.Repeat(" ", maxLen), attrs, overlay, true)
	}
	return nil
}

// Draw2DAnim draws a sequence of matrices in turn.
func (p *Pilot) Draw2DAnim(row, col int, matrices [][]string, stepsize time.Duration, clearAfter bool, attrs *cellcodec.Cell, overlay bool) error {
	yMax, xMax := 0, 0
	for _, m := range matrices {
		if len(m) > yMax {
			yMax = len(m)
		}
		for _, line := range m {
			if len(line) > xMax {
				xMax = len(line)
			}
		}
		if err := p.Draw2D(row, col, m, attrs, overlay); err != nil {
			return err
		}
		time.Sleep(stepsize)
	}
	if clearAfter {
		blank := make([]string, yMax)
		for i := range blank {
			blank[i] = strings.Repeat(" ", xMax)
		}
		return p.Draw2D(row, col, blank, attrs, overlay)
	}
	return nil
}

// DropTask runs task repeatedly at freq Hz in a background goroutine
// until Quit. With tryRestart, every error the task returns is ignored
// and the loop goes on, so a transient disconnect doesn't kill the task;
// without it, the first error ends the task. Mirrors
// pilot_frontend.drop_task.
func (p *Pilot) DropTask(task func(*Pilot) error, freq float64, tryRestart bool) {
	interval := time.Duration(float64(time.Second) / freq)
	run := func() {
		for !p.backend.IsFinished() {
			err := task(p)
			if err != nil && !tryRestart {
				return
			}
			time.Sleep(interval)
		}
	}
	p.backend.AddJob(run)
	go run()
}

// Quit tears down the active connection and terminates the process.
func (p *Pilot) Quit(exit func()) {
	if exit == nil {
		exit = func() { os.Exit(0) }
	}
	p.backend.Quit(exit)
}
