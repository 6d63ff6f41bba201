// Package driverside implements the driver half of the pair: it spawns a
// child under a pty, mirrors its screen into a vtscreen.Screen, and
// serves a single pilot connection at a time over the rendezvous
// protocol in internal/protocol.
package driverside

import (
	"os"
	"os/exec"
	"sync"
	"time"

	"ptyrc/internal/capability"
	"ptyrc/internal/protocol"
	"ptyrc/internal/ptyrcconfig"
	"ptyrc/internal/vtscreen"
)

// State is the driver's private state, one instance per process.
type State struct {
	ArgvCmd        []string
	InitialLatency time.Duration
	StartPort      int
	PortRange      int

	Oracle *capability.Oracle
	Screen *vtscreen.Screen

	PTM *os.File
	Cmd *exec.Cmd

	mu             sync.Mutex
	activeClient   *protocol.Handler
	cursorPosition [2]int
	terminalSize   [2]int
	cursorMoved    bool
	firstWrite     time.Time
	earlyBuffer    []byte
	hasSMCUP       bool

	StreamLines    bool
	StreamRawLines bool
	StreamStdout   bool
	StreamStdin    bool

	finishOnce sync.Once
	finished   chan struct{}
	exitCode   int
}

// New builds a driver State from config and the resolved argv.
func New(argv []string, cfg *ptyrcconfig.Config, oracle *capability.Oracle) *State {
	return &State{
		ArgvCmd:        argv,
		InitialLatency: time.Duration(cfg.InitialLatencyMs) * time.Millisecond,
		StartPort:      cfg.StartPort,
		PortRange:      cfg.PortRange,
		Oracle:         oracle,
		Screen:         vtscreen.New(24, 80),
		StreamLines:    true,
		finished:       make(chan struct{}),
	}
}

// Done returns the channel every background activity selects on to learn
// the driver has finished.
func (s *State) Done() <-chan struct{} { return s.finished }

// Finish closes Done exactly once and records the exit code background
// activities should propagate.
func (s *State) Finish(code int) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.exitCode = code
		s.mu.Unlock()
		close(s.finished)
	})
}

func (s *State) IsFinished() bool {
	select {
	case <-s.finished:
		return true
	default:
		return false
	}
}

func (s *State) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

func (s *State) setActiveClient(h *protocol.Handler) {
	s.mu.Lock()
	s.activeClient = h
	s.mu.Unlock()
}

func (s *State) ActiveClient() *protocol.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeClient
}

// SendToClient mirrors send_to_client: a best-effort send that clears the
// active client on a broken pipe instead of propagating the error.
func (s *State) SendToClient(what string, data any) {
	h := s.ActiveClient()
	if h == nil {
		return
	}
	if err := h.Send(what, data); err != nil {
		s.setActiveClient(nil)
	}
}

func (s *State) CursorPosition() [2]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursorPosition
}

func (s *State) setCursorPosition(pos [2]int) {
	s.mu.Lock()
	s.cursorPosition = pos
	s.mu.Unlock()
}

func (s *State) TerminalSize() [2]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminalSize
}
