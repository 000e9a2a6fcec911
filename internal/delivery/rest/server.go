// Path: internal/delivery/rest/server.go
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tictactoe/internal/config"
)

// Routes is a set of handlers that can mount itself on a router.
type Routes interface {
	Register(r *mux.Router)
}

// Server is the HTTP server of one service.
type Server struct {
	name       string
	httpServer *http.Server
	limiter    *RateLimiter
	log        *zap.Logger
}

// NewServer creates and configures a new API server for the named service.
func NewServer(name, port string, rl config.RateLimitConfig, log *zap.Logger, routes ...Routes) *Server {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(log))

	var limiter *RateLimiter
	if rl.RequestsPerSecond > 0 {
		limiter = NewRateLimiter(rate.Limit(rl.RequestsPerSecond), rl.Burst)
		router.Use(limiter.Middleware)
	}

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, map[string]string{"message": name + " is running"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	for _, rt := range routes {
		rt.Register(router)
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	return &Server{
		name:    name,
		limiter: limiter,
		log:     log,
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("API server starting", zap.String("service", s.name), zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
