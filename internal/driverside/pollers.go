package driverside

import (
	"time"

	"golang.org/x/term"

	"ptyrc/internal/ptyrclog"
)

// PollTermSize reads the real terminal size and, if it changed, updates
// TerminalSize, resizes the screen projection and the pty, and notifies
// the pilot. fd is the driver's own stdin fd (the controlling terminal).
func (s *State) PollTermSize(fd int, resizePTY func(rows, cols int)) {
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return
	}
	s.mu.Lock()
	changed := [2]int{cols, rows} != s.terminalSize
	if changed {
		s.terminalSize = [2]int{cols, rows}
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	s.SendToClient("terminal_size", [2]int{cols, rows})
	resizePTY(rows, cols)
	s.Screen.Resize(rows, cols)
}

// CursorPoller periodically asks the real terminal for its cursor
// position (via the driver's own stdin fd, see WriteStdin) whenever
// child output may have moved it, reports position changes to the pilot,
// and doubles as the connection's keepalive ping source.
func (s *State) CursorPoller(stop <-chan struct{}, cursorQuery []byte, poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	lastPing := time.Now()
	lastPos := s.CursorPosition()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		moved := s.cursorMoved
		s.cursorMoved = false
		s.mu.Unlock()
		if moved && len(cursorQuery) > 0 {
			WriteStdin(cursorQuery)
		}

		pos := s.CursorPosition()
		if pos != lastPos {
			lastPos = pos
			s.SendToClient("cursor_position", pos)
		}

		if time.Since(lastPing) > time.Second {
			lastPing = time.Now()
			s.SendToClient("ping", time.Now().Unix())
		}
	}
}

// ScreenWatcher pushes dirty lines to the pilot as they accumulate,
// honoring StreamLines/StreamRawLines, and clears the dirty set after
// each push (sorted ascending, matching the original's efficiency note
// that lower lines tend to be cheaper to repaint).
func (s *State) ScreenWatcher(stop <-chan struct{}, poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		if !s.Screen.IsDirty() {
			continue
		}
		dirty := s.Screen.DirtyLines()
		s.Screen.ClearDirty()

		h := s.ActiveClient()
		if h == nil {
			continue
		}
		for _, lineno := range dirty {
			if s.StreamLines {
				sendLine(h, s.Screen, lineno)
			}
			if s.StreamRawLines {
				sendRawLine(h, s.Screen, lineno)
			}
		}
		ptyrclog.Verbosef(h.ConnID, "pushed %d dirty lines", len(dirty))
	}
}
