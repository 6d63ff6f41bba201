package pilotside

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"ptyrc/internal/ptyrclog"
)

// findServer mirrors pilot_backend.find_server: scan ports ascending
// from StartPort, dial each with a short connect timeout, and babysit
// whichever one accepts until it drops, then resume scanning. Failed
// dials back off 100ms before trying the next port. After an
// established connection ends, the wait is 1s if handleServer reports a
// reset or broken pipe and 100ms otherwise; handleServer always reports
// nil, so in practice the wait is 100ms.
func (b *Backend) findServer() {
	ptyrclog.Verbosef("", "searching for driver...")

	for !b.IsFinished() {
		for port := b.StartPort; port < b.StartPort+b.PortRange; port++ {
			if b.IsFinished() {
				return
			}
			ptyrclog.Verbosef("", " - trying %d", port)

			conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), time.Second)
			if err != nil {
				if isRefusedOrTimeout(err) {
					time.Sleep(100 * time.Millisecond)
					continue
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}

			// No connect-time absolute deadline here: RunLoop refreshes
			// only the read deadline on each iteration (see
			// protocol.RunLoop), so an absolute deadline set once at
			// connect time would eventually expire under the writer
			// too and start failing healthy sends. Liveness is instead
			// handled by the ping/pong IsAlive() window.
			reason := b.handleServer(conn)
			conn.Close()

			if isResetOrBrokenPipe(reason) {
				ptyrclog.Verbosef("", "connection closed: %v", reason)
				time.Sleep(time.Second)
			} else {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func isRefusedOrTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

func isResetOrBrokenPipe(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE)
}
