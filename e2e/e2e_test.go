// Package e2e exercises the driver and protocol packages together
// against real child processes, covering the spec's E1/E3/E5/E6
// properties. Tests avoid needing a real controlling terminal by using
// capability.Load against a pipe (which degrades to Available()==false)
// and by driving the screen projection directly instead of through a
// real stdout.
package e2e

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"testing"
	"time"

	"ptyrc/internal/capability"
	"ptyrc/internal/driverside"
	"ptyrc/internal/protocol"
	"ptyrc/internal/ptyrcconfig"
)

func newDriver(t *testing.T, startPort, portRange int, argv []string) *driverside.State {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer w.Close()
	defer r.Close()

	oracle, err := capability.Load(w)
	if err != nil {
		t.Fatalf("load capability: %v", err)
	}

	cfg := &ptyrcconfig.Config{StartPort: startPort, PortRange: portRange, InitialLatencyMs: 0}
	s := driverside.New(argv, cfg, oracle)
	s.Screen.Resize(24, 80)

	if err := s.StartPTY(argv, 24, 80); err != nil {
		t.Fatalf("start pty: %v", err)
	}
	t.Cleanup(func() { s.PTM.Close() })

	go pumpMaster(s)
	return s
}

func pumpMaster(s *driverside.State) {
	buf := make([]byte, 4096)
	for {
		n, err := s.PTM.Read(buf)
		if n > 0 {
			s.MasterRead(append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			return
		}
	}
}

// TestE1WriteToTTYUpdatesDisplay mirrors E1: a driver running cat, asked
// (via the same path the write_to_tty handler uses) to write "hello\n"
// to the child's tty, should show "hello" on display row 0 within 1s.
func TestE1WriteToTTYUpdatesDisplay(t *testing.T) {
	s := newDriver(t, 45010, 5, []string{"cat"})

	s.PTM.Write([]byte("hello\n"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rows := s.Screen.Display()
		if len(rows) > 0 && trimRight(rows[0]) == "hello" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("display row 0 never became \"hello\": %#v", s.Screen.Display())
}

// TestE3SecondDriverBindsNextPort mirrors E3's port-scanning half: when
// the driver's first choice of port is occupied, ServerLoop binds the
// next one in range instead of failing.
func TestE3SecondDriverBindsNextPort(t *testing.T) {
	const start = 45020
	occupied, err := net.Listen("tcp", "localhost:45020")
	if err != nil {
		t.Skipf("could not occupy port for test: %v", err)
	}
	defer occupied.Close()

	s := newDriver(t, start, 5, []string{"cat"})
	stop := make(chan struct{})
	defer close(stop)
	go s.ServerLoop(stop)

	// The driver waits 100ms after each failed bind, so keep dialing until
	// the next port is up.
	var conn net.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err = net.DialTimeout("tcp", "localhost:45021", time.Second)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("expected driver to bind %d (next port): %v", start+1, err)
	}
	conn.Close()
}

// TestE5ReconnectDeliversValuesQuickly mirrors E5: after a pilot
// disconnects, the driver's server loop relistens on the same port
// within 2s, and a reconnecting client sees argv_cmd, terminal_size, and
// cursor_position within 1s of connecting.
func TestE5ReconnectDeliversValuesQuickly(t *testing.T) {
	const port = 45030
	addr := "localhost:45030"
	s := newDriver(t, port, 5, []string{"cat"})
	stop := make(chan struct{})
	defer close(stop)
	go s.ServerLoop(stop)

	first := dialAndDrain(t, addr)
	first.Close()

	time.Sleep(200 * time.Millisecond)

	got := map[string]bool{}
	deadline := time.Now().Add(2 * time.Second)
	var conn net.Conn
	var err error
	for time.Now().Before(deadline) {
		conn, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("never reconnected: %v", err)
	}
	defer conn.Close()

	// Ask for the values the way a pilot does on handshake.
	wanted := []string{"argv_cmd", "terminal_size", "cursor_position"}
	for _, name := range wanted {
		raw, err := protocol.Encode("get_value", name)
		if err != nil {
			t.Fatalf("encode get_value %s: %v", name, err)
		}
		if _, err := conn.Write(raw); err != nil {
			t.Fatalf("write get_value %s: %v", name, err)
		}
	}

	readDeadline := time.Now().Add(time.Second)
	conn.SetReadDeadline(readDeadline)
	scanner := bufio.NewScanner(conn)
	for time.Now().Before(readDeadline) && !(got["argv_cmd"] && got["terminal_size"] && got["cursor_position"]) {
		if !scanner.Scan() {
			break
		}
		var msg protocol.Message
		if json.Unmarshal(scanner.Bytes(), &msg) == nil {
			got[msg.What] = true
		}
	}
	for _, name := range wanted {
		if !got[name] {
			t.Errorf("expected %s to be delivered on reconnect, got %v", name, got)
		}
	}
}

func dialAndDrain(t *testing.T, addr string) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	return conn
}

// TestE6ExitCodePropagates mirrors E6: a child exiting with code 42
// should leave State.ExitCode()==42 and State.IsFinished()==true once
// the owning goroutine calls Finish after Cmd.Wait.
func TestE6ExitCodePropagates(t *testing.T) {
	s := newDriver(t, 45040, 5, []string{"sh", "-c", "exit 42"})

	err := s.Cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(interface{ ExitCode() int }); ok {
			code = exitErr.ExitCode()
		} else {
			code = 1
		}
	}
	s.Finish(code)

	if !s.IsFinished() {
		t.Fatal("expected State to be finished after child exit")
	}
	if s.ExitCode() != 42 {
		t.Fatalf("ExitCode() = %d, want 42", s.ExitCode())
	}
}

func trimRight(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	return s[:i]
}
