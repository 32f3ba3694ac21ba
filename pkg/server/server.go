package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/adfharrison1/go-analytics/pkg/api"
)

// Server wraps the HTTP listener serving the API.
type Server struct {
	router         *mux.Router
	httpServer     *http.Server
	requestTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds the context of every request. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithTimeouts sets the read, write and idle timeouts of the listener.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		s.httpServer.ReadTimeout = read
		s.httpServer.WriteTimeout = write
		s.httpServer.IdleTimeout = idle
	}
}

// NewServer creates a server listening on addr and routing to handler.
func NewServer(addr string, handler *api.Handler, options ...Option) *Server {
	s := &Server{
		router: mux.NewRouter(),
		httpServer: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		requestTimeout: 30 * time.Second,
	}
	for _, option := range options {
		option(s)
	}

	handler.RegisterRoutes(s.router)

	s.router.Use(recoveryMiddleware, requestIDMiddleware, requestLoggerMiddleware)
	if s.requestTimeout > 0 {
		s.router.Use(timeoutMiddleware(s.requestTimeout))
	}

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Warn().Str("method", r.Method).Str("path", r.URL.Path).Msg("No route found")
		api.WriteJSONError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSONError(w, http.StatusMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
	})

	s.httpServer.Handler = s.router
	return s
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	log.Info().Str("addr", listener.Addr().String()).Msg("Starting go-analytics server")
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for outstanding requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}
