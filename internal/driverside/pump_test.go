package driverside

import (
	"testing"
	"time"

	"ptyrc/internal/ptyrcconfig"
)

func newTestState(latencyMs int) *State {
	cfg := ptyrcconfig.Default()
	cfg.InitialLatencyMs = latencyMs
	return New([]string{"bash"}, cfg, nil)
}

func TestMasterReadWithholdsDuringInitialLatency(t *testing.T) {
	s := newTestState(50)
	_, skip := s.MasterRead([]byte("hello"))
	if !skip {
		t.Fatal("expected skip=true within initial latency window")
	}
}

func TestMasterReadFlushesAfterLatency(t *testing.T) {
	s := newTestState(20)
	s.MasterRead([]byte("buffered"))
	time.Sleep(40 * time.Millisecond)
	out, skip := s.MasterRead([]byte("more"))
	if skip {
		t.Fatal("expected skip=false once latency has elapsed")
	}
	if string(out) != "bufferedmore" {
		t.Fatalf("out = %q, want bufferedmore (early buffer prepended)", out)
	}
}

func TestStdinReadReportsEOF(t *testing.T) {
	s := newTestState(0)
	_, _, eof := s.StdinRead(nil)
	if !eof {
		t.Fatal("expected eof=true for empty read")
	}
}

func TestStdinReadForwardsPlainInput(t *testing.T) {
	s := newTestState(0)
	out, skip, eof := s.StdinRead([]byte("abc"))
	if eof || skip {
		t.Fatalf("unexpected skip=%v eof=%v", skip, eof)
	}
	if string(out) != "abc" {
		t.Fatalf("out = %q, want abc", out)
	}
}
