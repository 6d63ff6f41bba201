package pilotside

import (
	"sync"
	"time"

	"ptyrc/internal/protocol"
	"ptyrc/internal/ptyrcconfig"
)

// Backend owns the connection lifecycle: a background goroutine
// continually searches for a driver to dial, while Pilot (the frontend)
// reads whatever handler/mirror is currently active. Mirrors
// pilot_backend.
type Backend struct {
	StartPort int
	PortRange int
	Timeout   time.Duration

	mu      sync.Mutex
	handler *protocol.Handler
	mirror  *Mirror

	jobsMu sync.Mutex
	jobs   []func()

	finishedMu sync.Mutex
	finished   bool
}

// NewBackend builds a Backend from config, ready to have its background
// jobs started via Start.
func NewBackend(cfg *ptyrcconfig.Config, timeout time.Duration) *Backend {
	return &Backend{
		StartPort: cfg.StartPort,
		PortRange: cfg.PortRange,
		Timeout:   timeout,
	}
}

// Start launches the rendezvous-scanning goroutine and returns a Pilot
// frontend bound to this backend.
func (b *Backend) Start() *Pilot {
	go b.findServer()
	return &Pilot{backend: b}
}

func (b *Backend) setActive(h *protocol.Handler, m *Mirror) {
	b.mu.Lock()
	b.handler = h
	b.mirror = m
	b.mu.Unlock()
}

// ActiveHandler returns the current connection's handler, or nil.
func (b *Backend) ActiveHandler() *protocol.Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler
}

// ActiveMirror returns the current connection's screen mirror, or nil.
func (b *Backend) ActiveMirror() *Mirror {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mirror
}

// IsFinished reports whether Quit has been called.
func (b *Backend) IsFinished() bool {
	b.finishedMu.Lock()
	defer b.finishedMu.Unlock()
	return b.finished
}

func (b *Backend) setFinished() {
	b.finishedMu.Lock()
	b.finished = true
	b.finishedMu.Unlock()
}

// AddJob registers a background job for bookkeeping (DropTask). It does
// not start it; callers start their own goroutine.
func (b *Backend) AddJob(fn func()) {
	b.jobsMu.Lock()
	b.jobs = append(b.jobs, fn)
	b.jobsMu.Unlock()
}

// Quit marks the backend finished and tears down the active connection.
func (b *Backend) Quit(exit func()) {
	b.setFinished()
	if h := b.ActiveHandler(); h != nil {
		h.Close()
	}
	if exit != nil {
		exit()
	}
}
