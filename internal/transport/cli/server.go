package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
)

// maxLineLength bounds a single request line.
const maxLineLength = 64 * 1024

// Deps holds the dependencies required by the CLI server.
type Deps struct {
	Config    config.CLIConfig
	Tree      *tree.Tree
	Callbacks *session.Callbacks
	Logger    *logging.Logger

	// Userlevel is the level new sessions start at.
	Userlevel access.Userlevel
}

// Server accepts console connections.
type Server struct {
	cfg       config.CLIConfig
	tree      *tree.Tree
	callbacks *session.Callbacks
	logger    *logging.Logger
	level     access.Userlevel

	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// New creates a CLI server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Tree == nil {
		return nil, fmt.Errorf("tree is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	level := deps.Userlevel
	if !level.IsValid() {
		level = access.Normal
	}
	return &Server{
		cfg:       deps.Config,
		tree:      deps.Tree,
		callbacks: deps.Callbacks,
		logger:    deps.Logger.Component("cli"),
		level:     level,
		conns:     make(map[*conn]struct{}),
	}, nil
}

// Start listens on the configured address and serves connections in the
// background until ctx is cancelled or Close is called.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.listener = ln

	s.logger.Info("CLI server starting", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(srvCtx)
	}()
	go func() {
		<-srvCtx.Done()
		ln.Close() //nolint:errcheck // Unblocks Accept on shutdown
	}()
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("CLI accept failed", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		c := newConn(s, nc)
		s.track(c, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(c, false)
			c.serve(ctx)
		}()
	}
}

func (s *Server) track(c *conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

// ConnectionCount returns the number of open console connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops accepting, disconnects every console and waits for their
// sessions to close.
func (s *Server) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	s.mu.Lock()
	for c := range s.conns {
		c.nc.Close() //nolint:errcheck // Unblocks the read loop
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("CLI server stopped")
	return nil
}
