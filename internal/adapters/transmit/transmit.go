// Package transmit delivers print requests to destinations.
package transmit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/domain/model"
)

// Transmitter defaults.
const (
	DefaultPort    = "9100"
	DefaultTimeout = 30 * time.Second
)

// Log records each request and reports success without contacting a printer.
type Log struct {
	logger *slog.Logger
}

var _ core.Transmitter = (*Log)(nil)

// NewLog creates a logging transmitter.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "log_transmitter")}
}

func (l *Log) Send(ctx context.Context, req *model.PrintRequest) (bool, error) {
	l.logger.InfoContext(ctx, "print request",
		"job_id", req.Job.ID,
		"user", req.Job.User,
		"queue", req.Queue,
		"destination", req.Destination,
		"pages", req.PageCount,
		"colour_pages", req.ColourPageCount,
		"quota_cost", req.QuotaCost(),
	)
	return true, nil
}

// DestinationLookup resolves a destination id to its configuration.
type DestinationLookup interface {
	GetDestination(ctx context.Context, id string) (*model.Destination, error)
}

// SocketOptions configures NewSocket.
type SocketOptions struct {
	Destinations DestinationLookup
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Socket streams the working file to the destination's raw printing port.
type Socket struct {
	destinations DestinationLookup
	timeout      time.Duration
	dialer       net.Dialer
	logger       *slog.Logger
}

var _ core.Transmitter = (*Socket)(nil)

// NewSocket creates a raw TCP transmitter.
func NewSocket(opts SocketOptions) (*Socket, error) {
	if opts.Destinations == nil {
		return nil, errors.New("destination lookup is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Socket{
		destinations: opts.Destinations,
		timeout:      timeout,
		logger:       logger.With("component", "socket_transmitter"),
	}, nil
}

// Send returns false without error when the printer refuses or drops the connection.
// Errors are reserved for problems on this side, such as an unknown destination.
func (s *Socket) Send(ctx context.Context, req *model.PrintRequest) (bool, error) {
	dest, err := s.destinations.GetDestination(ctx, req.Destination)
	if err != nil {
		return false, fmt.Errorf("resolve destination %s: %w", req.Destination, err)
	}
	addr := Address(dest)

	f, err := os.Open(req.File)
	if err != nil {
		return false, fmt.Errorf("open working file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.logger.WarnContext(ctx, "printer unreachable", "destination", dest.ID, "address", addr, "error", err)
		return false, nil
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	n, err := io.Copy(conn, f)
	if err != nil {
		s.logger.WarnContext(ctx, "printer transmission failed",
			"destination", dest.ID, "address", addr, "bytes", n, "error", err)
		return false, nil
	}
	s.logger.DebugContext(ctx, "printer transmission complete", "job_id", req.Job.ID, "destination", dest.ID, "bytes", n)
	return true, nil
}

// Address returns host:port for a destination, defaulting to the destination id as host
// and DefaultPort as port.
func Address(d *model.Destination) string {
	addr := strings.TrimSpace(d.Address)
	if addr == "" {
		addr = d.ID
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), DefaultPort)
}
