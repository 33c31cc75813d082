package supervisor

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agent-team/agent-team/agentstate"
	"github.com/agent-team/agent-team/protocol"
	"github.com/agent-team/agent-team/session"
)

// shutdownGrace bounds how long Run waits to hand its Shutdown command to
// the session thread once SIGTERM/SIGINT arrives; the child-process grace
// period itself (spec.md §5) is applied by the session's own Shutdown.
const shutdownGrace = 3 * time.Second

// Listen binds the Unix-domain control socket at socketPath, removing a
// stale socket file left behind by a crashed prior run first. The caller
// must bind before backgrounding the process, so a racing `ls`/`ask` never
// observes a socket path that exists but isn't accepting yet.
func Listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o700); err != nil {
		return nil, err
	}
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}
	return net.Listen("unix", socketPath)
}

// Run accepts connections on ln and dispatches each against handle until
// ctx is cancelled, SIGTERM/SIGINT arrives, or the handle itself shuts
// down (e.g. via a `shutdown` request on one of those connections). The
// socket file is always removed on the way out.
//
// handle.Events is allocated once, at construction, and is the same channel
// every Adapter the handle ever builds (including across Restart) writes
// into, so the stdout-bridge goroutine Run starts below stays attached
// across the handle's whole lifetime rather than needing to be restarted
// per spawn. Callers should still Spawn before Run so the control socket
// doesn't accept requests against an agent that was never launched.
func Run(ctx context.Context, ln net.Listener, handle *session.Handle, log *zap.Logger) error {
	defer removeSocket(ln)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := NewServer(handle, log)
	connCh := make(chan net.Conn)
	acceptErrCh := make(chan error, 1)

	renderer := NewRenderer(os.Stdout)
	go func() {
		for e := range handle.Events {
			renderer.Render(e)
		}
	}()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				acceptErrCh <- err
				return
			}
			connCh <- conn
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("received shutdown signal, stopping session", zap.String("name", handle.Name()))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			err := handle.Shutdown(shutdownCtx)
			cancel()
			return err

		case err := <-acceptErrCh:
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err

		case conn := <-connCh:
			go func() {
				handleConn(ctx, conn, srv, log)
				// A `shutdown` request leaves the handle Terminated; closing
				// the listener ends the accept loop so Run returns.
				if handle.Status.Get().State == agentstate.Terminated {
					_ = ln.Close()
				}
			}()
		}
	}
}

func handleConn(ctx context.Context, conn net.Conn, srv *Server, log *zap.Logger) {
	defer conn.Close()
	framer := protocol.NewFramer(conn)

	req, err := framer.ReadRequest()
	if err != nil {
		_ = framer.WriteResponse(protocol.Err("", protocol.ErrBadRequest, err.Error()))
		return
	}

	resp := srv.Dispatch(ctx, req)
	if err := framer.WriteResponse(resp); err != nil {
		log.Warn("failed to write response", zap.Error(err))
	}
}

func removeSocket(ln net.Listener) {
	if addr, ok := ln.Addr().(*net.UnixAddr); ok {
		_ = os.Remove(addr.Name)
	}
	_ = ln.Close()
}
