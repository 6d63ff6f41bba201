package pilotside

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"

	"ptyrc/internal/cellcodec"
	"ptyrc/internal/protocol"
	"ptyrc/internal/ptyrclog"
)

type setLineMsg struct {
	Where int    `json:"where"`
	Line  string `json:"line"`
}

type setRawLineMsg struct {
	Where   int    `json:"where"`
	RawLine string `json:"rawline"`
}

// table builds the pilot's explicit dispatch table: protocol.BaseTable
// plus set_line/set_rawline/process, which feed m. Grounded on
// server_handler's extension of basic_handler.
func table(m *Mirror) protocol.Table {
	return protocol.BaseTable().Merge(protocol.Table{
		"set_line": func(hd *protocol.Handler, data json.RawMessage) error {
			var msg setLineMsg
			if _, err := protocol.DecodeData(data, &msg); err != nil {
				return err
			}
			size, _ := hd.Value("terminal_size")
			maxRows := 0
			if sz, ok := size.([2]int); ok {
				maxRows = sz[1]
			}
			m.SetLine(msg.Where, msg.Line, maxRows, func(missing []int) {
				hd.Send("get_lines", missing)
			})
			return nil
		},
		"set_rawline": func(hd *protocol.Handler, data json.RawMessage) error {
			var msg setRawLineMsg
			if _, err := protocol.DecodeData(data, &msg); err != nil {
				return err
			}
			raw, err := base64.StdEncoding.DecodeString(msg.RawLine)
			if err != nil {
				return err
			}
			line, err := cellcodec.UnpackLine(raw)
			if err != nil {
				return err
			}
			m.SetRawLine(msg.Where, line)
			return nil
		},
		"terminal_size": func(hd *protocol.Handler, data json.RawMessage) error {
			var size [2]int
			if _, err := protocol.DecodeData(data, &size); err != nil {
				return err
			}
			_, hadSize := hd.Value("terminal_size")
			hd.SetValue("terminal_size", size)
			if !hadSize {
				hd.Send("command", "refresh_lines")
			}
			return nil
		},
		"process": func(hd *protocol.Handler, data json.RawMessage) error {
			var what string
			if _, err := protocol.DecodeData(data, &what); err != nil {
				return err
			}
			ptyrclog.Verbosef(hd.ConnID, "driver process event: %s", what)
			return nil
		},
	})
}

// handleServer babysits one driver connection end-to-end: handshake,
// dispatch loop, and active-handle bookkeeping. Mirrors
// pilot_backend.handle_server. It always returns nil: RunLoop does not
// report why the connection ended, so findServer cannot tell a reset or
// broken pipe from any other end of the connection.
func (b *Backend) handleServer(conn net.Conn) error {
	connID := uuid.New().String()[:8]
	h := protocol.NewHandler(conn, connID)
	m := newMirror()
	b.setActive(h, m)
	defer b.setActive(nil, nil)

	h.Send("get_value", "argv_cmd")
	h.Send("get_value", "terminal_size")
	h.Send("get_value", "cursor_position")
	h.Send("command", "enable_stream_lines")

	stop := make(chan struct{})
	go func() {
		for !b.IsFinished() {
			if !h.IsAlive() {
				close(stop)
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		close(stop)
	}()

	protocol.RunLoop(h, table(m), stop)
	h.Close()
	ptyrclog.Verbosef(connID, "driver connection ended")
	return nil
}
