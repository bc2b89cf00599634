package stdio

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// hostWaitDelay bounds how long Wait blocks on pipes held open by the host's
// own children after the host exits.
const hostWaitDelay = 2 * time.Second

// hostProcess is the host application under the bridge. The host writes
// control messages to its stdout and reads replies on its stdin.
type hostProcess struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out io.ReadCloser
}

// startHost launches the host application. Canceling ctx kills it.
func startHost(ctx context.Context, name string, args []string) (*hostProcess, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr
	cmd.WaitDelay = hostWaitDelay

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating host stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating host stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting host application %q: %w", name, err)
	}
	return &hostProcess{cmd: cmd, in: in, out: out}, nil
}

// wait closes the reply stream and waits for the host to exit.
func (h *hostProcess) wait() error {
	_ = h.in.Close()
	return h.cmd.Wait()
}
