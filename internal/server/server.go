// Package server accepts TCP connections and hands each one to the session
// protocol handler, one resolution request per connection.
package server

import (
	"context"
	"net"

	"github.com/vk/spacesd/internal/ctxlog"
	"github.com/vk/spacesd/internal/session"
)

// Server is a line-protocol TCP front end for the resolver.
type Server struct {
	addr    string
	handler *session.Handler
}

// New creates a server listening on addr once started.
func New(addr string, handler *session.Handler) *Server {
	return &Server{addr: addr, handler: handler}
}

// ListenAndServe accepts connections until ctx is cancelled. Each
// connection is served in its own goroutine and closed when its single
// exchange completes.
func (s *Server) ListenAndServe(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	logger.Info("Listening for resolution requests.", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func(c net.Conn) {
			defer c.Close()
			if err := s.handler.Serve(ctx, c); err != nil {
				logger.Error("Session ended with transport error.", "remote", c.RemoteAddr().String(), "error", err)
			}
		}(conn)
	}
}
