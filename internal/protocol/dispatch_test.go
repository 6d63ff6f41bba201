package protocol

import (
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestRunLoopHandshakeAndPingPong(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	h := NewHandler(server, "t1")
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		RunLoop(h, BaseTable(), stop)
		close(done)
	}()

	// Drain the initial get_version handshake line.
	client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read handshake: %v", err)
	}
	if n == 0 {
		t.Fatal("expected a get_version line")
	}

	raw, err := Encode("ping", unixNow())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	client.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := client.Write(raw); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err = client.Read(buf)
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if n == 0 {
		t.Fatal("expected a pong reply")
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not exit after stop was closed")
	}
}

func TestVersionMismatchClosesHandler(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	h := NewHandler(server, "t1")
	table := BaseTable()

	drained := make(chan struct{})
	go func() {
		buf := make([]byte, 4096)
		client.SetReadDeadline(time.Now().Add(time.Second))
		client.Read(buf) // drain the has_version reply
		close(drained)
	}()

	mismatched, err := json.Marshal([3]int{9, 9, 9})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := table["get_version"](h, mismatched); err != nil {
		t.Fatalf("get_version handler: %v", err)
	}
	<-drained

	if !h.Finished() {
		t.Fatal("expected handler to be closed on version mismatch")
	}
}

func TestVersionMatchLeavesHandlerOpen(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	h := NewHandler(server, "t1")
	table := BaseTable()

	matched, err := json.Marshal(Version)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := table["has_version"](h, matched); err != nil {
		t.Fatalf("has_version handler: %v", err)
	}

	if h.Finished() {
		t.Fatal("expected handler to stay open on matching version")
	}
}
