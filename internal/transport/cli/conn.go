package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
	"github.com/nerrad567/gray-logic-dictionary/internal/updates"
)

// errQuit ends the read loop after a quit request.
var errQuit = errors.New("quit")

// conn is one console connection and its session.
type conn struct {
	server *Server
	nc     net.Conn
	client *session.Client
	logger *logging.Logger

	wmu sync.Mutex
	w   *bufio.Writer

	stop chan struct{}
	done chan struct{}
}

func newConn(s *Server, nc net.Conn) *conn {
	c := &conn{
		server: s,
		nc:     nc,
		w:      bufio.NewWriter(nc),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.client = session.New(s.tree, c, s.callbacks,
		session.WithUserlevel(s.level),
		session.WithLogger(s.logger),
	)
	c.logger = s.logger.With("session", c.client.ID())
	return c
}

// ConnectionType implements session.Transport.
func (c *conn) ConnectionType() string { return "cli" }

// RemoteEndpoint implements session.Transport.
func (c *conn) RemoteEndpoint() string { return c.nc.RemoteAddr().String() }

// Preload implements session.Transport by starting the update pusher.
func (c *conn) Preload() error {
	go c.pushUpdates()
	return nil
}

func (c *conn) pushUpdates() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case <-c.client.Updates():
			c.writeUpdates()
		}
	}
}

func (c *conn) writeUpdates() {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.client.Drain(func(u updates.Update) {
		io.WriteString(c.w, formatUpdate(u)+"\n") //nolint:errcheck // Flushed below
	})
	c.w.Flush() //nolint:errcheck // Write errors end the read loop
}

func (c *conn) serve(ctx context.Context) {
	defer c.nc.Close()

	if err := c.client.Open(); err != nil {
		c.logger.Warn("CLI session failed to open", "error", err)
		c.client.Close()
		return
	}
	defer func() {
		close(c.stop)
		<-c.done
		c.client.Close()
	}()

	c.logger.Info("CLI connection opened", "remote", c.RemoteEndpoint())

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	idle := time.Duration(c.server.cfg.IdleTimeout) * time.Second

	for {
		if idle > 0 {
			c.nc.SetReadDeadline(time.Now().Add(idle)) //nolint:errcheck // Best-effort deadline
		}
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c.client.ObserveRequest(redact(line))

		if err := c.handle(line); errors.Is(err, errQuit) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Debug("CLI read ended", "error", err)
	}
	c.logger.Info("CLI connection closed", "remote", c.RemoteEndpoint())
}

// handle executes one request line and writes its reply.
func (c *conn) handle(line string) error {
	args, err := shellwords.Parse(line)
	if err != nil {
		c.reply(nil, false, fmt.Errorf("%w: %w", transport.ErrBadRequest, err))
		return nil
	}
	if len(args) == 0 {
		return nil
	}

	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		c.reply(nil, false, fmt.Errorf("%w: unknown command %q", transport.ErrBadRequest, args[0]))
		return nil
	}
	params := args[1:]
	if len(params) < cmd.min || (cmd.max >= 0 && len(params) > cmd.max) {
		c.reply(nil, false, fmt.Errorf("%w: usage: %s", transport.ErrBadRequest, cmd.usage))
		return nil
	}

	lines, err := cmd.run(c, params)
	c.reply(lines, cmd.bare, err)
	if err == nil && cmd.quit {
		return errQuit
	}
	return nil
}

// reply writes lines followed by OK, or the error line. Commands marked
// bare that produce exactly one line write it without OK.
func (c *conn) reply(lines []string, bare bool, err error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err != nil {
		fmt.Fprintf(c.w, "ERROR %s: %s\n", transport.ErrorCode(err), err)
		c.w.Flush() //nolint:errcheck // Write errors end the read loop
		return
	}
	for _, l := range lines {
		io.WriteString(c.w, l+"\n") //nolint:errcheck // Flushed below
	}
	if !bare || len(lines) != 1 {
		io.WriteString(c.w, "OK\n") //nolint:errcheck // Flushed below
	}
	c.w.Flush() //nolint:errcheck // Write errors end the read loop
}

// formatUpdate renders an update line. Event updates carry no value.
func formatUpdate(u updates.Update) string {
	line := "UPDATE " + u.URI + " " + u.Time.UTC().Format(time.RFC3339Nano)
	if u.Value.IsValid() {
		line += " " + u.Value.String()
	}
	return line
}
