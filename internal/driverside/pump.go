package driverside

import (
	"bytes"
	"os"
	"time"
)

// MasterRead processes one chunk of child pty output: it mirrors the
// original's master_read contract (buffer withholding for
// InitialLatency, a one-time smcup/clear/cup00 alignment sequence, early
// buffer flush, and optional stdout streaming) and feeds the result into
// the screen projection. The returned bytes are what should actually be
// forwarded to the real controlling terminal; skip is true when nothing
// should be forwarded yet.
func (s *State) MasterRead(chunk []byte) (forward []byte, skip bool) {
	s.mu.Lock()
	if s.firstWrite.IsZero() {
		s.firstWrite = time.Now()
	}
	withinLatency := time.Since(s.firstWrite) < s.InitialLatency
	if s.StreamStdout {
		s.mu.Unlock()
		s.SendToClient("stdout", append([]byte(nil), chunk...))
		s.mu.Lock()
	}

	if withinLatency {
		s.earlyBuffer = append(s.earlyBuffer, chunk...)
		s.mu.Unlock()
		return nil, true
	}

	var smcupPrelude []byte
	if !s.hasSMCUP {
		s.hasSMCUP = true
		if s.Oracle != nil && !bytes.Contains(s.earlyBuffer, s.Oracle.SMCUP()) {
			smcupPrelude = append(smcupPrelude, s.Oracle.SMCUP()...)
			smcupPrelude = append(smcupPrelude, s.Oracle.Clear()...)
			smcupPrelude = append(smcupPrelude, s.Oracle.CUP(0, 0)...)
		}
	}

	out := chunk
	if len(s.earlyBuffer) > 0 {
		out = append(append([]byte(nil), s.earlyBuffer...), chunk...)
		s.earlyBuffer = nil
	}
	if len(out) > 0 {
		s.cursorMoved = true
	}
	s.mu.Unlock()

	s.Screen.Write(out)

	if len(smcupPrelude) > 0 {
		return append(smcupPrelude, out...), false
	}
	return out, false
}

// FlushEarlyBuffer forces a MasterRead(nil) pass once InitialLatency has
// elapsed, matching the original's delayed-thread call to master_read(None)
// that empties a buffer nothing else would otherwise flush.
func (s *State) FlushEarlyBuffer() (forward []byte, skip bool) {
	return s.MasterRead(nil)
}

// StdinRead processes one chunk read from the driver's own stdin fd: it
// strips an embedded cursor-position report (u6 response) if present,
// updates CursorPosition, optionally mirrors the raw bytes to the pilot,
// and returns the bytes that should still be forwarded to the child.
// eof is true on a zero-length read.
func (s *State) StdinRead(indata []byte) (forward []byte, skipForward bool, eof bool) {
	if len(indata) == 0 {
		s.SendToClient("process", "stdin_eof")
		return nil, false, true
	}

	prefix, suffix, charset := (*[]byte)(nil), (*[]byte)(nil), (*[]byte)(nil)
	if s.Oracle != nil {
		p, sfx, cs := s.Oracle.CursorReportFraming()
		prefix, suffix, charset = &p, &sfx, &cs
	}

	remaining := indata
	movedCandidate := true

	if prefix != nil && len(*prefix) > 0 {
		if idx := bytes.Index(indata, *prefix); idx >= 0 {
			movedCandidate = false
			end := idx + len(*prefix)
			for end < len(indata) && byteInSet(indata[end], *charset) {
				end++
			}
			if end > idx && end-1 < len(indata) && len(*suffix) > 0 && indata[end-1] == (*suffix)[0] {
				seq := indata[idx:end]
				body := bytes.TrimSuffix(bytes.TrimPrefix(seq, *prefix), *suffix)
				if semi := bytes.IndexByte(body, ';'); semi >= 0 {
					row := atoiSafe(body[:semi])
					col := atoiSafe(body[semi+1:])
					s.setCursorPosition([2]int{col, row})
				}
				remaining = append(append([]byte(nil), indata[:idx]...), indata[end:]...)
			}
		}
	}

	s.mu.Lock()
	if movedCandidate {
		s.cursorMoved = true
	}
	stream := s.StreamStdin
	s.mu.Unlock()

	if len(remaining) == 0 {
		return nil, true, false
	}

	if stream {
		s.SendToClient("stdin", append([]byte(nil), remaining...))
	}
	return remaining, false, false
}

func byteInSet(b byte, set []byte) bool {
	for _, c := range set {
		if b == c {
			return true
		}
	}
	return false
}

func atoiSafe(b []byte) int {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// WriteStdin writes bytes to the driver's own stdin fd, the full-duplex
// trick the cursor poller uses to ask the real terminal where it left the
// cursor after all child output has been forwarded to it.
func WriteStdin(data []byte) {
	os.Stdin.Write(data)
}
