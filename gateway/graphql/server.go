package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/champtc/opencti-sub001/errors"
)

// Config configures the GraphQL HTTP listener.
type Config struct {
	BindAddress string
	Path        string
	Timeout     time.Duration
	EnableCORS  bool
}

// Validate checks the listener configuration.
func (c *Config) Validate() error {
	if c.BindAddress == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: bind address is required", errors.ErrInvalidConfig),
			"Config", "Validate", "gateway config")
	}
	if c.Path == "" {
		c.Path = "/graphql"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// request is the standard GraphQL POST body.
type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Server manages the HTTP server for the GraphQL endpoint.
type Server struct {
	config     Config
	resolver   *Resolver
	logger     *slog.Logger
	httpServer *http.Server

	running bool
	mu      sync.RWMutex
}

// NewServer creates a new GraphQL HTTP server.
func NewServer(config Config, resolver *Resolver, logger *slog.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, errors.WrapFatal(fmt.Errorf("resolver is nil"),
			"Server", "NewServer", "resolver is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		resolver: resolver,
		logger:   logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleGraphQL)
	mux.HandleFunc("/health", s.handleHealth)

	var handler http.Handler = mux
	if config.EnableCORS {
		handler = corsMiddleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:         config.BindAddress,
		Handler:      handler,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Start begins serving. It blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.WrapInvalid(fmt.Errorf("server already running"),
			"Server", "Start", "gateway startup")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("gateway listening",
		"address", s.config.BindAddress,
		"path", s.config.Path)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return errors.WrapTransient(err, "Server", "Start", "gateway listener")
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "gateway shutdown")
	}
	return nil
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, &Response{
			Errors: gqlerror.List{gqlerror.Errorf("malformed request body: %s", err.Error())},
		})
		return
	}
	if req.Query == "" {
		writeResponse(w, &Response{
			Errors: gqlerror.List{gqlerror.Errorf("query is required")},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()

	writeResponse(w, s.resolver.Execute(ctx, req.Query, req.Variables))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "encoding failure", http.StatusInternalServerError)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
