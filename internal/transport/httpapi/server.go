// Package httpapi serves the dictionary over HTTP.
//
// Every request runs in its own short-lived session: it is opened at the
// configured default userlevel, raised to the level carried by an
// "Authorization: Bearer <token>" header when present, used for one tree
// operation and closed again.
//
//	server, err := httpapi.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/audit"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Security  config.SecurityConfig
	Tree      *tree.Tree
	Callbacks *session.Callbacks
	Logger    *logging.Logger

	// Audit, when set, is served at GET /api/v1/audit.
	Audit audit.Repository

	// WebSocket, when set, is mounted at WebSocketPath.
	WebSocket     http.Handler
	WebSocketPath string

	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	secCfg    config.SecurityConfig
	tree      *tree.Tree
	callbacks *session.Callbacks
	logger    *logging.Logger
	auditRepo audit.Repository
	ws        http.Handler
	wsPath    string
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, tree, logger)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Tree == nil {
		return nil, fmt.Errorf("tree is required")
	}

	wsPath := deps.WebSocketPath
	if wsPath == "" {
		wsPath = "/ws"
	}

	return &Server{
		cfg:       deps.Config,
		secCfg:    deps.Security,
		tree:      deps.Tree,
		callbacks: deps.Callbacks,
		logger:    deps.Logger.Component("http"),
		auditRepo: deps.Audit,
		ws:        deps.WebSocket,
		wsPath:    wsPath,
		version:   deps.Version,
	}, nil
}

// Handler returns the router. Start serves the same handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// defaultLevel is the level request sessions start at.
func (s *Server) defaultLevel() access.Userlevel {
	if s.secCfg.DefaultUserlevel.IsValid() {
		return s.secCfg.DefaultUserlevel
	}
	return access.Normal
}
