package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Mayoengin/mpc-mongodb-server/internal/logger"
)

// Tunnel is the slice of the tunnel manager the coordinator depends on.
type Tunnel interface {
	EnsureActive(ctx context.Context) (int, error)
	Healthy() bool
	LocalPort() int
	Stop()
}

// Coordinator is the single entry point to the two-hop connection. One
// mutex guards the whole check-then-act region, so concurrent callers
// share a single tunnel and a single session.
type Coordinator struct {
	log     *logger.Logger
	tunnel  Tunnel
	dialer  Dialer
	breaker *gobreaker.CircuitBreaker[Session]

	mu      sync.Mutex
	session Session
}

// Status is a point-in-time snapshot of the connection for reporting.
type Status struct {
	Connected     bool   `json:"connected"`
	TunnelHealthy bool   `json:"tunnel_healthy"`
	LocalPort     int    `json:"local_port"`
	BreakerState  string `json:"breaker_state"`
}

// NewCoordinator wires the coordinator. Establishment runs through a circuit
// breaker so a flapping bastion or unreachable database sheds repeated
// connection attempts quickly instead of stalling every tool call.
func NewCoordinator(tunnel Tunnel, dialer Dialer, log *logger.Logger) *Coordinator {
	c := &Coordinator{
		log:    log,
		tunnel: tunnel,
		dialer: dialer,
	}
	c.breaker = gobreaker.NewCircuitBreaker[Session](gobreaker.Settings{
		Name:        "mongodb-connect",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("connection circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// EnsureConnected returns a usable session, reusing the current one when the
// tunnel is healthy and a ping succeeds, otherwise rebuilding tunnel and
// session from scratch. Safe for concurrent use; idempotent on a healthy
// link.
func (c *Coordinator) EnsureConnected(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.tunnel.Healthy() {
		if err := c.session.Ping(ctx); err == nil {
			return c.session, nil
		}
		c.log.Info("session ping failed, rebuilding connection")
	}

	// Any existing session is stale at this point: its tunnel died or its
	// ping failed. Discard it before rebuilding.
	if c.session != nil {
		_ = c.session.Close(ctx)
		c.session = nil
	}

	session, err := c.breaker.Execute(func() (Session, error) {
		return c.establish(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: connection attempts suspended after repeated failures: %v",
				ErrConnection, err)
		}
		return nil, err
	}

	c.session = session
	return c.session, nil
}

// establish builds the full two-hop path. If the session fails after the
// tunnel came up, the tunnel is torn down too so no partial state survives.
func (c *Coordinator) establish(ctx context.Context) (Session, error) {
	port, err := c.tunnel.EnsureActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	session, err := c.dialer.Open(ctx, port)
	if err != nil {
		c.tunnel.Stop()
		return nil, err
	}

	c.log.Info("mongodb connection established", "local_port", port)
	return session, nil
}

// Disconnect tears down session then tunnel. Both steps are best-effort and
// the call is idempotent.
func (c *Coordinator) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		if err := c.session.Close(ctx); err != nil {
			c.log.Warn("session close failed during disconnect", "error", err)
		}
		c.session = nil
	}
	c.tunnel.Stop()
	c.log.Info("disconnected from mongodb")
}

// Status reports the current connection state without touching the network.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Connected:     c.session != nil,
		TunnelHealthy: c.tunnel.Healthy(),
		LocalPort:     c.tunnel.LocalPort(),
		BreakerState:  c.breaker.State().String(),
	}
}
