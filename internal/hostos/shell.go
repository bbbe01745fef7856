package hostos

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/blin/zabby-agent/internal/errors"
)

// RunShell runs command through /bin/sh -c, killing it if it outlives
// timeout, and returns combined stdout+stderr.
func (l *Linux) RunShell(ctx context.Context, command string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &errors.HostOSError{Operation: "run shell command", Err: ctx.Err()}
		}
		return "", &errors.HostOSError{Operation: "run shell command", Err: err}
	}
	return out.String(), nil
}
