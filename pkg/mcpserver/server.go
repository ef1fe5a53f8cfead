package mcpserver

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/notify"
)

// listener pairs a running net/http server with the net.Listener it was
// started on, so Addresses() can report the actual bound port (e.g. after
// ":0").
type listener struct {
	srv *http.Server
	ln  net.Listener
}

// Server aggregates the network transports enabled for a Dispatcher into
// one lifecycle (§4.6, §6.1): HTTP, WebSocket, SSE, and streamable-HTTP
// each bind their own address, since they rarely share a port in practice
// (distinct ALBs, distinct rate limits). Server does not run stdio;
// ServeStdio does that separately.
type Server struct {
	dispatcher *Dispatcher
	sessions   *SessionStore
	notify     *notify.Manager

	httpAddr           string
	wsAddr             string
	wsOrigins          []string
	sseAddr            string
	streamableHTTPAddr string

	mu        sync.Mutex
	listeners []*listener
	ready     chan struct{}
}

// Config selects which transports a Server starts. An empty field disables
// that transport. At least one should be set for the server to be useful.
type Config struct {
	HTTPAddr           string
	WebSocketAddr      string
	WebSocketOrigins   []string
	SSEAddr            string
	StreamableHTTPAddr string
}

// New builds a Server around a fully-wired Dispatcher. d.Notify must be
// non-nil if SSE or streamable-HTTP is enabled, since both transports push
// notifications from it.
func New(d *Dispatcher, cfg Config) *Server {
	return &Server{
		dispatcher:         d,
		sessions:           NewSessionStore(),
		notify:             d.Notify,
		httpAddr:           cfg.HTTPAddr,
		wsAddr:             cfg.WebSocketAddr,
		wsOrigins:          cfg.WebSocketOrigins,
		sseAddr:            cfg.SSEAddr,
		streamableHTTPAddr: cfg.StreamableHTTPAddr,
		ready:              make(chan struct{}),
	}
}

// Start binds every configured transport's listener and serves it on its
// own goroutine. It returns once all listeners are bound; Ready() closes
// at the same moment. A bind failure on any transport stops the ones
// already started and returns the error.
func (s *Server) Start(ctx context.Context) error {
	specs := []struct {
		addr    string
		handler http.Handler
	}{
		{s.httpAddr, HTTPHandler(s.dispatcher, s.sessions)},
		{s.wsAddr, WebSocketHandler(s.dispatcher, s.wsOrigins)},
		{s.sseAddr, SSEHandler(s.notify)},
		{s.streamableHTTPAddr, StreamableHTTPHandler(s.dispatcher, s.sessions, s.notify)},
	}

	for _, spec := range specs {
		if spec.addr == "" {
			continue
		}
		ln, err := net.Listen("tcp", spec.addr)
		if err != nil {
			s.closeAll()
			return err
		}
		srv := &http.Server{Handler: spec.handler}
		s.mu.Lock()
		s.listeners = append(s.listeners, &listener{srv: srv, ln: ln})
		s.mu.Unlock()
		go func() {
			_ = srv.Serve(ln)
		}()
	}

	close(s.ready)
	return nil
}

// Ready closes once every configured transport is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Stop gracefully shuts down every running listener.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, l := range s.listeners {
		if err := l.srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Addresses returns the bound address of every running listener, in the
// order HTTP, WebSocket, SSE, streamable-HTTP were configured.
func (s *Server) Addresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]string, 0, len(s.listeners))
	for _, l := range s.listeners {
		addrs = append(addrs, l.ln.Addr().String())
	}
	return addrs
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		_ = l.ln.Close()
	}
	s.listeners = nil
}
