package hostos

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/blin/zabby-agent/internal/errors"
)

// DialProbe implements net.tcp.service's wire check: dial addr, optionally
// write request, then read one line of response within timeout.
func (l *Linux) DialProbe(ctx context.Context, addr string, request string, timeout time.Duration) (string, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", &errors.HostOSError{Operation: "dial " + addr, Err: err}
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", &errors.HostOSError{Operation: "set deadline for " + addr, Err: err}
	}

	if request != "" {
		if _, err := conn.Write([]byte(request)); err != nil {
			return "", &errors.HostOSError{Operation: "write probe request to " + addr, Err: err}
		}
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return "", &errors.HostOSError{Operation: "read probe response from " + addr, Err: err}
	}
	return line, nil
}
