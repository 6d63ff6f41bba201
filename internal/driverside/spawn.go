package driverside

import (
	"fmt"
	"os/exec"

	"github.com/creack/pty"
)

// StartPTY spawns argv under a pty sized rows x cols and records the
// resulting master fd and child process on State.
func (s *State) StartPTY(argv []string, rows, cols int) error {
	s.Cmd = exec.Command(argv[0], argv[1:]...)
	ptm, err := pty.StartWithSize(s.Cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	s.PTM = ptm
	return nil
}

// ResizePTY updates the child pty's window size.
func (s *State) ResizePTY(rows, cols int) {
	if s.PTM == nil {
		return
	}
	pty.Setsize(s.PTM, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}
