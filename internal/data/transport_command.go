package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
)

// commandWaitDelay bounds how long Send waits for output pipes after the
// command was killed; a descendant outside the process group may hold them
const commandWaitDelay = time.Second

// commandTransport runs an external program per message.
// The program receives recipient and text as its two final arguments.
type commandTransport struct {
	argv []string
}

// NewCommandTransport creates a transport that invokes argv
func NewCommandTransport(argv []string) repo.Transport {
	return &commandTransport{argv: append([]string(nil), argv...)}
}

func (t *commandTransport) Name() string {
	return "command"
}

// Send runs the command and reports its exit status.
// A non-zero exit is not an error; only a failure to launch is.
func (t *commandTransport) Send(ctx context.Context, recipient, text string) (repo.TransportOutput, error) {
	if len(t.argv) == 0 {
		return repo.TransportOutput{}, errors.New("transport command is empty")
	}

	args := append(append([]string(nil), t.argv[1:]...), recipient, text)
	cmd := exec.CommandContext(ctx, t.argv[0], args...)
	killProcessGroup(cmd)
	cmd.WaitDelay = commandWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := repo.TransportOutput{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() != nil {
				return out, fmt.Errorf("transport command interrupted: %w", ctx.Err())
			}
			out.StatusCode = exitErr.ExitCode()
			return out, nil
		}
		return out, fmt.Errorf("failed to run transport command: %w", err)
	}

	return out, nil
}
