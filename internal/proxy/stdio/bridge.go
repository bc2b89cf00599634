package stdio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/channel"
	"github.com/tkingovr/originguard/internal/jsonrpc"
)

// Bridge carries line-delimited JSON-RPC control messages from the host
// application to a channel handler. Requests get a {"handled":bool} reply;
// notifications are dispatched silently.
type Bridge struct {
	handler channel.Handler
	logger  *slog.Logger

	// writes to the reply stream are serialized
	mu sync.Mutex
}

// NewBridge creates a bridge dispatching to handler.
func NewBridge(handler channel.Handler, logger *slog.Logger) *Bridge {
	return &Bridge{handler: handler, logger: logger}
}

// Run starts the host application and serves control messages from its
// stdout until it exits or ctx is done.
func (b *Bridge) Run(ctx context.Context, command string, args []string) error {
	hostCtx, kill := context.WithCancel(ctx)
	defer kill()

	host, err := startHost(hostCtx, command, args)
	if err != nil {
		return err
	}

	serveErr := b.Serve(hostCtx, host.out, host.in)
	if serveErr != nil {
		kill()
	}
	waitErr := host.wait()

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case serveErr != nil:
		return serveErr
	case waitErr != nil:
		return fmt.Errorf("host application: %w", waitErr)
	}
	return nil
}

// Serve reads control messages from src and writes replies to dst until src
// is exhausted or ctx is done.
func (b *Bridge) Serve(ctx context.Context, src io.Reader, dst io.Writer) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024) // 10MB max message

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if reply := b.handleLine(line); reply != nil {
			if err := b.writeLine(dst, reply); err != nil {
				return fmt.Errorf("writing reply: %w", err)
			}
		}
	}

	return scanner.Err()
}

func (b *Bridge) handleLine(line []byte) *api.JSONRPCMessage {
	msg, err := jsonrpc.Parse(line)
	if err != nil {
		b.logger.Warn("invalid control message", "error", err)
		return jsonrpc.NewParseErrorResponse(err.Error())
	}
	if msg.Method == "" {
		if msg.Result != nil || msg.Error != nil {
			b.logger.Debug("ignoring response message")
			return nil
		}
		b.logger.Warn("control message without method")
		return jsonrpc.NewInvalidRequestResponse(msg.ID, "missing method")
	}

	cm, err := jsonrpc.ToControlMessage(msg)
	if err != nil {
		b.logger.Warn("invalid control params", "method", msg.Method, "error", err)
		if msg.IsRequest() {
			return jsonrpc.NewInvalidParamsResponse(msg.ID, err.Error())
		}
		return nil
	}

	handled := b.handler.OnControlMessageReceived(cm)
	b.logger.Debug("control message dispatched", "kind", cm.Kind, "handled", handled)

	if !msg.IsRequest() {
		return nil
	}
	return jsonrpc.NewHandledResponse(msg.ID, handled)
}

func (b *Bridge) writeLine(w io.Writer, msg *api.JSONRPCMessage) error {
	data, err := jsonrpc.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	b.mu.Lock()
	defer b.mu.Unlock()
	_, err = w.Write(data)
	return err
}
