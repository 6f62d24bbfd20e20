// Package server answers read-only queries for the current snapshot
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	"golang.org/x/net/netutil"
)

// StateProvider returns the latest snapshot. It is called once per
// metrics request.
type StateProvider func() telemetry.Snapshot

// Assets supplies the dashboard page
type Assets interface {
	Dashboard() []byte
}

type Option func(*Server)

func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithReadTimeout bounds how long a client may take to send its request.
// Zero disables the limit.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.readTimeout = d
		}
	}
}

// WithHost sets the listen address; empty binds every interface
func WithHost(host string) Option {
	return func(s *Server) {
		s.host = host
	}
}

// Server serves one connection at a time. Keep-alives are disabled so a
// connection is released as soon as its response is written.
type Server struct {
	provider    StateProvider
	assets      Assets
	logger      logger.Logger
	readTimeout time.Duration
	host        string

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
	done chan struct{}
}

func New(provider StateProvider, assets Assets, opts ...Option) *Server {
	s := &Server{
		provider: provider,
		assets:   assets,
		logger:   logger.New("server"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start binds the port and serves in the background. Port 0 picks a free
// port; use Addr to find it.
func (s *Server) Start(port int) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return errFactory.New(ErrAlreadyRunning)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return errFactory.Wrap(ErrBindFailed, err).WithData(port)
	}

	srv := &http.Server{
		Handler:           s,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
	}
	srv.SetKeepAlivesEnabled(false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(netutil.LimitListener(ln, 1)); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}()

	s.srv = srv
	s.addr = ln.Addr()
	s.done = done

	s.logger.Info().Str("addr", s.addr.String()).Msg("Query server listening")

	return nil
}

// Stop closes the listener and waits for in-flight requests to finish or
// ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.done = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if err != nil {
		// Deadline passed with a request still in flight
		_ = srv.Close()
	}
	<-done

	s.logger.Info().Msg("Query server stopped")

	if err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.notFound(w, r)
		return
	}

	switch r.URL.Path {
	case "/api/metrics":
		s.metrics(w, r)
	case "/", "/index.html":
		s.dashboard(w, r)
	default:
		s.notFound(w, r)
	}
}

func (s *Server) metrics(w http.ResponseWriter, _ *http.Request) {
	body, err := json.Marshal(newMetricsDocument(s.provider()))
	if err != nil {
		s.logger.ErrorWithCode(errors.New().Wrap(ErrEncodeFailed, err)).Msg("Failed to encode metrics")
		write(w, http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("internal error"))
		return
	}

	write(w, http.StatusOK, "application/json", body)
}

func (s *Server) dashboard(w http.ResponseWriter, _ *http.Request) {
	write(w, http.StatusOK, "text/html; charset=utf-8", s.assets.Dashboard())
}

const notFoundPage = `<html><body><h1>404 Not Found</h1><p>Available endpoints:</p><ul>` +
	`<li><a href="/">/</a> - Dashboard</li>` +
	`<li><a href="/api/metrics">/api/metrics</a> - JSON API</li>` +
	`</ul></body></html>`

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("Unknown route")
	write(w, http.StatusNotFound, "text/html; charset=utf-8", []byte(notFoundPage))
}

func write(w http.ResponseWriter, status int, contentType string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
