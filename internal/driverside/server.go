package driverside

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"ptyrc/internal/protocol"
	"ptyrc/internal/ptyrclog"
)

// ServerLoop is the rendezvous half of the driver: bind ascending ports
// starting at StartPort, accept one pilot at a time, and babysit it via
// HandleClient. If every port in the range is unavailable, the process
// exits (there is nobody left to report failure to).
func (s *State) ServerLoop(stop <-chan struct{}) {
	const scanDelay = 100 * time.Millisecond
	const recoDelay = 1 * time.Second

	port := s.StartPort
	remaining := s.PortRange

	for !s.IsFinished() {
		select {
		case <-stop:
			return
		default:
		}

		if remaining <= 0 {
			ptyrclog.Printf("", "unable to bind any port in range %d-%d", s.StartPort, s.StartPort+s.PortRange-1)
			os.Exit(1)
		}

		ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err != nil {
			ptyrclog.Verbosef("", "unable to bind port %d, trying %d", port, port+1)
			port++
			remaining--
			time.Sleep(scanDelay)
			continue
		}

		s.acceptOne(ln, stop)
		ln.Close()
		time.Sleep(recoDelay)
	}
}

func (s *State) acceptOne(ln net.Listener, stop <-chan struct{}) {
	type acceptResult struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan acceptResult, 1)
	go func() {
		conn, err := ln.Accept()
		accepted <- acceptResult{conn, err}
	}()

	select {
	case <-stop:
		return
	case res := <-accepted:
		if res.err != nil {
			ptyrclog.Verbosef("", "client disconnected: %v", res.err)
			time.Sleep(time.Second)
			return
		}
		s.HandleClient(res.conn, stop)
	}
}

// HandleClient babysits one pilot connection until it disconnects or the
// driver finishes, clearing ActiveClient on return either way.
func (s *State) HandleClient(conn net.Conn, stop <-chan struct{}) {
	connID := uuid.New().String()[:8]
	h := protocol.NewHandler(conn, connID)
	s.setActiveClient(h)
	defer func() {
		s.setActiveClient(nil)
		conn.Close()
	}()

	protocol.RunLoop(h, s.Table(), stop)
}
