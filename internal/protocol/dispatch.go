package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"time"

	"ptyrc/internal/ptyrclog"
)

// Handled is the signature every dispatch entry implements. Returning an
// error from a handler logs it and continues the loop; it never tears
// down the connection on its own (Close/markExit do that explicitly).
type Handled func(h *Handler, data json.RawMessage) error

// Table is an explicit message-tag dispatch table, replacing the
// original's getattr(handler, what)-based dynamic method lookup per the
// redesign notes: unknown tags are logged and dropped rather than
// reflectively resolved.
type Table map[string]Handled

// BaseTable returns the handlers every side needs regardless of role:
// the liveness handshake and the default value/stdin/stdout sinks.
func BaseTable() Table {
	return Table{
		"ping": func(h *Handler, data json.RawMessage) error {
			var ts float64
			if _, err := DecodeData(data, &ts); err != nil {
				return err
			}
			h.touchPing(ts)
			if err := h.Send("pong", unixNow()); err != nil {
				return err
			}
			if !h.IsAlive() {
				h.Close()
			}
			return nil
		},
		"pong": func(h *Handler, data json.RawMessage) error {
			var ts float64
			if _, err := DecodeData(data, &ts); err != nil {
				return err
			}
			h.touchPing(ts)
			if !h.IsAlive() {
				h.Close()
			}
			return nil
		},
		"exit": func(h *Handler, data json.RawMessage) error {
			var code int
			if _, err := DecodeData(data, &code); err != nil {
				return err
			}
			h.markExit(code)
			if !h.IsAlive() {
				h.Close()
			}
			return nil
		},
		"get_version": func(h *Handler, data json.RawMessage) error {
			var v [3]int
			if _, err := DecodeData(data, &v); err != nil {
				return err
			}
			if err := h.Send("has_version", Version); err != nil {
				return err
			}
			h.setRemoteVersion(v)
			if v != Version {
				ptyrclog.Verbosef(h.ConnID, "version mismatch: remote=%v local=%v", v, Version)
				h.Close()
			}
			return nil
		},
		"has_version": func(h *Handler, data json.RawMessage) error {
			var v [3]int
			if _, err := DecodeData(data, &v); err != nil {
				return err
			}
			h.setRemoteVersion(v)
			if v != Version {
				ptyrclog.Verbosef(h.ConnID, "version mismatch: remote=%v local=%v", v, Version)
				h.Close()
			}
			return nil
		},
		"cursor_position": func(h *Handler, data json.RawMessage) error {
			var pos [2]int
			if _, err := DecodeData(data, &pos); err != nil {
				return err
			}
			h.SetValue("cursor_position", pos)
			return nil
		},
		"terminal_size": func(h *Handler, data json.RawMessage) error {
			var size [2]int
			if _, err := DecodeData(data, &size); err != nil {
				return err
			}
			h.SetValue("terminal_size", size)
			return nil
		},
		"argv_cmd": func(h *Handler, data json.RawMessage) error {
			var argv []string
			if _, err := DecodeData(data, &argv); err != nil {
				return err
			}
			h.SetValue("argv_cmd", argv)
			return nil
		},
		"stdin": func(h *Handler, data json.RawMessage) error {
			var b []byte
			if _, err := DecodeData(data, &b); err != nil {
				return err
			}
			h.dispatchStdin(b)
			return nil
		},
		"stdout": func(h *Handler, data json.RawMessage) error {
			var b []byte
			if _, err := DecodeData(data, &b); err != nil {
				return err
			}
			h.dispatchStdout(b)
			return nil
		},
	}
}

// Merge overlays extra entries onto a copy of the base table so callers
// never mutate a shared table.
func (t Table) Merge(extra Table) Table {
	out := make(Table, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

const maxConsecutiveFails = 10

const maxPartialReads = 20

// RunLoop is the handle_remote equivalent: it sends the initial
// get_version handshake, then reads newline-delimited messages and
// dispatches them against table until the connection is declared lost
// (maxConsecutiveFails empty reads in a row) or stop is closed. A line
// cut short by the read deadline is kept and completed by later reads,
// up to maxPartialReads times.
func RunLoop(h *Handler, table Table, stop <-chan struct{}) {
	if err := h.Send("get_version", Version); err != nil {
		ptyrclog.Verbosef(h.ConnID, "get_version send failed: %v", err)
		return
	}

	reader := bufio.NewReaderSize(h.Conn, 1<<20)
	fails := 0
	var pending []byte
	partialReads := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		h.Conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
		line, err := reader.ReadBytes('\n')
		if len(pending) > 0 {
			line = append(pending, line...)
			pending = nil
		}
		if err != nil && isTimeout(err) && len(line) > 0 && partialReads < maxPartialReads {
			pending, line = line, nil
			partialReads++
		} else {
			partialReads = 0
		}
		if len(line) > 0 {
			var msg Message
			if jerr := json.Unmarshal(line, &msg); jerr != nil {
				ptyrclog.Verbosef(h.ConnID, "malformed line: %v", jerr)
			} else {
				dispatchOne(h, table, msg)
			}
		}

		if err != nil {
			if isTimeout(err) {
				if sendErr := h.Send("ping", unixNow()); sendErr != nil {
					ptyrclog.Verbosef(h.ConnID, "lost connection: %v", sendErr)
					return
				}
				fails++
				if fails >= maxConsecutiveFails {
					ptyrclog.Verbosef(h.ConnID, "lost connection...")
					return
				}
				continue
			}
			ptyrclog.Verbosef(h.ConnID, "connection closed: %v", err)
			return
		}
		fails = 0
		if h.Finished() {
			return
		}
	}
}

func dispatchOne(h *Handler, table Table, msg Message) {
	if msg.What == "" {
		ptyrclog.Verbosef(h.ConnID, "ill-formed incoming data: %+v", msg)
		return
	}
	handled, ok := table[msg.What]
	if !ok {
		ptyrclog.Verbosef(h.ConnID, "unknown message %q", msg.What)
		return
	}
	isNull, _ := peekNull(msg.Data)
	if isNull {
		ptyrclog.Verbosef(h.ConnID, "null data sent for %q", msg.What)
		return
	}
	if err := handled(h, msg.Data); err != nil {
		ptyrclog.Verbosef(h.ConnID, "handler for %q failed: %v", msg.What, err)
	}
}

func peekNull(raw json.RawMessage) (bool, error) {
	return len(raw) == 0 || string(raw) == "null", nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
