package driverside

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"ptyrc/internal/cellcodec"
	"ptyrc/internal/protocol"
	"ptyrc/internal/ptyrclog"
	"ptyrc/internal/vtscreen"
)

type setLine struct {
	Where int    `json:"where"`
	Line  string `json:"line"`
}

type setRawLine struct {
	Where   int    `json:"where"`
	RawLine string `json:"rawline"`
}

type drawRequest struct {
	Where [2]int          `json:"where"`
	Char  string          `json:"char"`
	Attrs *json.RawMessage `json:"attrs"`
}

// Table builds the driver's explicit dispatch table: protocol.BaseTable
// plus every client_handler command the pilot can issue.
func (s *State) Table() protocol.Table {
	return protocol.BaseTable().Merge(protocol.Table{
		"get_value": func(h *protocol.Handler, data json.RawMessage) error {
			var name string
			if _, err := protocol.DecodeData(data, &name); err != nil {
				return err
			}
			s.handleGetValue(h, name)
			return nil
		},
		"command": func(h *protocol.Handler, data json.RawMessage) error {
			var name string
			if _, err := protocol.DecodeData(data, &name); err != nil {
				return err
			}
			s.handleCommand(h, name)
			return nil
		},
		"get_lines": func(h *protocol.Handler, data json.RawMessage) error {
			var linelist []int
			if _, err := protocol.DecodeData(data, &linelist); err != nil {
				return err
			}
			sort.Ints(linelist)
			for _, lineno := range linelist {
				sendLine(h, s.Screen, lineno)
			}
			return nil
		},
		"get_rawlines": func(h *protocol.Handler, data json.RawMessage) error {
			var linelist []int
			if _, err := protocol.DecodeData(data, &linelist); err != nil {
				return err
			}
			sort.Ints(linelist)
			for _, lineno := range linelist {
				sendRawLine(h, s.Screen, lineno)
			}
			return nil
		},
		"write_to_tty": func(h *protocol.Handler, data json.RawMessage) error {
			var raw []byte
			if _, err := protocol.DecodeData(data, &raw); err != nil {
				return err
			}
			if s.PTM != nil {
				s.PTM.Write(raw)
			}
			return nil
		},
		"draw": func(h *protocol.Handler, data json.RawMessage) error {
			var req drawRequest
			if _, err := protocol.DecodeData(data, &req); err != nil {
				return err
			}
			s.handleDraw(req)
			return nil
		},
		"kill": func(h *protocol.Handler, data json.RawMessage) error {
			var code int
			if _, err := protocol.DecodeData(data, &code); err != nil {
				return err
			}
			os.Exit(code)
			return nil
		},
	})
}

func (s *State) handleGetValue(h *protocol.Handler, name string) {
	switch name {
	case "terminal_size":
		h.Send("terminal_size", s.TerminalSize())
	case "argv_cmd":
		h.Send("argv_cmd", s.ArgvCmd)
	case "cursor_position":
		h.Send("cursor_position", s.CursorPosition())
	case "has_smcup":
		s.mu.Lock()
		v := s.hasSMCUP
		s.mu.Unlock()
		h.Send("has_smcup", v)
	case "first_write":
		s.mu.Lock()
		fw := s.firstWrite
		s.mu.Unlock()
		if !fw.IsZero() {
			h.Send("first_write", fw.Unix())
		}
	default:
		ptyrclog.Verbosef(h.ConnID, "unknown get_value: %s", name)
	}
}

func (s *State) handleCommand(h *protocol.Handler, name string) {
	switch name {
	case "refresh_lines":
		size := s.TerminalSize()
		for lineno := 0; lineno < size[1]; lineno++ {
			sendLine(h, s.Screen, lineno)
		}
		return
	case "refresh_rawlines":
		size := s.TerminalSize()
		for lineno := 0; lineno < size[1]; lineno++ {
			sendRawLine(h, s.Screen, lineno)
		}
		return
	}

	if strings.HasPrefix(name, "enable_") || strings.HasPrefix(name, "disable_") {
		enable := strings.HasPrefix(name, "enable_")
		rest := strings.TrimPrefix(strings.TrimPrefix(name, "enable_"), "disable_")
		if !s.setStreamFlag(rest, enable) {
			ptyrclog.Verbosef(h.ConnID, "unknown boolean: %s", rest)
		}
		return
	}

	if s.Oracle == nil {
		ptyrclog.Verbosef(h.ConnID, "unknown command: %s", name)
		return
	}
	switch name {
	case "terminal_reset":
		WriteStdin(s.Oracle.Reset())
	case "terminal_clear":
		WriteStdin(s.Oracle.Clear())
	case "terminal_cup00":
		WriteStdin(s.Oracle.CUP(0, 0))
	case "terminal_smcup":
		WriteStdin(s.Oracle.SMCUP())
	case "terminal_rmcup":
		WriteStdin(s.Oracle.RMCUP())
	default:
		ptyrclog.Verbosef(h.ConnID, "unknown command: %s", name)
	}
}

func (s *State) setStreamFlag(name string, enable bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "stream_lines":
		s.StreamLines = enable
	case "stream_rawlines":
		s.StreamRawLines = enable
	case "stream_stdout":
		s.StreamStdout = enable
	case "stream_stdin":
		s.StreamStdin = enable
	default:
		return false
	}
	return true
}

func (s *State) handleDraw(req drawRequest) {
	if s.Oracle == nil {
		return
	}
	var seq []byte
	seq = append(seq, s.Oracle.SaveCursor()...)
	seq = append(seq, s.Oracle.CUP(req.Where[0], req.Where[1])...)

	if req.Attrs == nil {
		seq = append(seq, []byte(req.Char)...)
	} else {
		var attrs struct {
			Fg, Bg                                        string
			Bold, Italic, Underscore, Strikethrough, Reverse, Blink bool
		}
		_ = json.Unmarshal(*req.Attrs, &attrs)
		cell, err := cellcodec.NewCell(req.Char, attrs.Fg, attrs.Bg, attrs.Bold, attrs.Italic, attrs.Underscore, attrs.Strikethrough, attrs.Reverse, attrs.Blink)
		if err == nil {
			seq = append(seq, s.Oracle.SGR0()...)
			seq = append(seq, cellcodec.NewLine([]*cellcodec.Cell{cell}).Render(s.Oracle, cellcodec.RenderOpts{})...)
		}
	}
	seq = append(seq, s.Oracle.RestoreCursor()...)
	os.Stdout.Write(seq)
}

func sendLine(h *protocol.Handler, screen *vtscreen.Screen, lineno int) {
	display := screen.Display()
	if lineno < 0 || lineno >= len(display) {
		return
	}
	h.Send("set_line", setLine{Where: lineno, Line: display[lineno]})
}

func sendRawLine(h *protocol.Handler, screen *vtscreen.Screen, lineno int) {
	line := screen.RawLine(lineno)
	if line == nil {
		return
	}
	raw := cellcodec.PackLine(line.Cells)
	h.Send("set_rawline", setRawLine{Where: lineno, RawLine: base64.StdEncoding.EncodeToString(raw)})
}
