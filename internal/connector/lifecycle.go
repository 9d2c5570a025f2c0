package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrConfigurationMissing is returned by Ensure when no connection URI is configured.
	ErrConfigurationMissing = errors.New("database connection string is not configured")

	// ErrConnection wraps the driver error of a failed connection attempt.
	ErrConnection = errors.New("database connection failed")
)

// DefaultConnectTimeout bounds a single connection attempt when the config
// does not set one.
const DefaultConnectTimeout = 10 * time.Second

// State is the lifecycle state of the shared connection.
type State int

const (
	StateAbsent State = iota
	StateConnecting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Manager owns the single process-wide database connection. It connects
// lazily on first use, shares one in-flight attempt among concurrent
// callers, and retries on the next call after a failure.
type Manager struct {
	registry  *Registry
	cfg       ConnectionConfig
	onConnect func(ctx context.Context, conn Connector) error
	logger    *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	state   State
	conn    Connector
	lastErr error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOnConnect registers a hook run inside every successful attempt before
// the connection is published. A hook error fails the attempt.
func WithOnConnect(fn func(ctx context.Context, conn Connector) error) ManagerOption {
	return func(m *Manager) { m.onConnect = fn }
}

// WithLogger sets the logger used for connection events.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager in the Absent state. No I/O happens until Ensure.
func NewManager(registry *Registry, cfg ConnectionConfig, opts ...ManagerOption) *Manager {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	m := &Manager{
		registry: registry,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configured reports whether a connection URI is present.
func (m *Manager) Configured() bool {
	return m.cfg.URI != ""
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the error of the most recent failed attempt, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Ensure returns a ready connection, establishing it if needed. Concurrent
// callers share a single attempt. The attempt itself is not bound to ctx, so
// a caller that gives up does not cancel it for the others.
func (m *Manager) Ensure(ctx context.Context) (Connector, error) {
	if m.cfg.URI == "" {
		return nil, ErrConfigurationMissing
	}

	m.mu.Lock()
	if m.state == StateReady && m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	m.mu.Unlock()

	ch := m.group.DoChan("connect", func() (any, error) {
		return m.connect()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Connector), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// connect runs as the single in-flight attempt. The state only becomes
// Connecting here, so callers joining an attempt that already finished do
// not overwrite its outcome.
func (m *Manager) connect() (Connector, error) {
	m.mu.Lock()
	if m.state == StateReady && m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	m.state = StateConnecting
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	defer cancel()

	conn, err := m.registry.Open(ctx, m.cfg)
	if err == nil && m.onConnect != nil {
		if hookErr := m.onConnect(ctx, conn); hookErr != nil {
			conn.Disconnect()
			err = hookErr
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConnection, err)
		m.state = StateFailed
		m.lastErr = err
		m.logger.Error("database connection failed",
			"uri", RedactURI(m.cfg.URI),
			"error", err,
		)
		return nil, err
	}

	m.conn = conn
	m.state = StateReady
	m.lastErr = nil
	m.logger.Info("database connected",
		"driver", conn.DriverName(),
		"uri", RedactURI(m.cfg.URI),
	)
	return conn, nil
}

// Close disconnects the shared connection and returns the Manager to Absent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateAbsent
	if m.conn == nil {
		return nil
	}
	err := m.conn.Disconnect()
	m.conn = nil
	return err
}
