package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// chi answers 405 to any method missing from its method table, so the
// GENA verbs are added to it once, before any route is registered.
func init() {
	for _, m := range []string{"SUBSCRIBE", "UNSUBSCRIBE", "NOTIFY"} {
		chi.RegisterMethod(m)
	}
}

// Handler processes one request and writes a response. It mirrors the
// subset of net/http semantics the UPnP layers need: method, path,
// headers and body in, status/headers/body out.
type Handler func(w http.ResponseWriter, r *http.Request)

// Server wraps http.Server/net.Listener the way skunkie-dms's dlna/dms
// package does, adding the 431-on-oversized-headers behaviour and a
// bound-address accessor used by device descriptions to advertise the
// callback/control URLs they serve. Routing is a chi.Router rather than
// a ServeMux so GENA's non-standard SUBSCRIBE/UNSUBSCRIBE/NOTIFY verbs
// can be dispatched without chi's own method restrictions getting in
// the way (handlers branch on r.Method themselves).
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	mux        chi.Router
}

// NewServer creates a server bound to addr (host:port; port 0 picks a
// free port) with the given per-request read/write timeouts.
func NewServer(addr string, readTimeout, writeTimeout time.Duration) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		MaxHeaderBytes:    1 << 16,
		ReadHeaderTimeout: readTimeout,
	}

	return &Server{httpServer: srv, listener: ln, mux: mux}, nil
}

// Handle registers a handler for a path pattern, delegating to the
// underlying router the way dms.go wires serviceControlHandler and
// friends onto its mux.
func (s *Server) Handle(pattern string, h Handler) {
	s.mux.HandleFunc(pattern, http.HandlerFunc(h))
}

// Addr returns the address this server is bound to, so the owning
// device description can build absolute URLs from it.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve runs the accept loop until ctx is cancelled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close shuts the server down immediately, closing the listener.
func (s *Server) Close() error {
	return s.httpServer.Close()
}
