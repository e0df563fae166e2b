package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/Mayoengin/mpc-mongodb-server/internal/logger"
)

// ErrTunnel marks failures establishing or operating the SSH tunnel.
var ErrTunnel = errors.New("tunnel error")

// Config holds everything needed to build the SSH hop and the local forwarder.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// RemoteHost/RemotePort is the target the SSH server dials on our behalf.
	RemoteHost string
	RemotePort int

	ConnectTimeout    time.Duration
	KeepaliveInterval time.Duration

	// EnableLegacyAlgorithms widens the negotiated algorithm set for old
	// sshd deployments (group1/group14 kex, CBC ciphers, ssh-rsa/ssh-dss
	// host keys).
	EnableLegacyAlgorithms bool
}

// sshConn is the slice of *ssh.Client the manager needs. Tests substitute a
// fake; production uses the real client.
type sshConn interface {
	Dial(network, addr string) (net.Conn, error)
	SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error)
	Close() error
}

type dialFunc func(ctx context.Context, cfg Config) (sshConn, error)

// Manager owns the single SSH tunnel: one client connection, one loopback
// listener forwarding every accepted connection through the hop.
type Manager struct {
	cfg  Config
	log  *logger.Logger
	dial dialFunc

	mu        sync.Mutex
	conn      sshConn
	listener  net.Listener
	localPort int
	alive     bool
	cancel    context.CancelFunc
}

// New creates a tunnel manager. No connection is made until EnsureActive.
func New(cfg Config, log *logger.Logger) *Manager {
	return &Manager{
		cfg:  cfg,
		log:  log,
		dial: dialSSH,
	}
}

// EnsureActive returns the loopback port of a live tunnel, creating or
// recreating the tunnel if the current one is missing or has gone stale.
// Check and create happen under one lock so concurrent callers cannot race
// a second tunnel into existence.
func (m *Manager) EnsureActive(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.alive {
		return m.localPort, nil
	}

	m.closeLocked()

	conn, err := m.dial(ctx, m.cfg)
	if err != nil {
		return 0, fmt.Errorf("%w: ssh connection to %s:%d failed: %v",
			ErrTunnel, m.cfg.Host, m.cfg.Port, err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		conn.Close()
		return 0, fmt.Errorf("%w: local listener failed: %v", ErrTunnel, err)
	}

	keepaliveCtx, cancel := context.WithCancel(context.Background())

	m.conn = conn
	m.listener = listener
	m.localPort = listener.Addr().(*net.TCPAddr).Port
	m.alive = true
	m.cancel = cancel

	go m.acceptLoop(listener, conn)
	if m.cfg.KeepaliveInterval > 0 {
		go m.keepalive(keepaliveCtx, conn)
	}

	m.log.Info("ssh tunnel established",
		"ssh_host", m.cfg.Host,
		"local_port", m.localPort,
		"remote", net.JoinHostPort(m.cfg.RemoteHost, strconv.Itoa(m.cfg.RemotePort)))

	return m.localPort, nil
}

// Healthy reports whether the tunnel is believed usable. A failed keepalive
// flips this to false until the next EnsureActive rebuilds the tunnel.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil && m.alive
}

// LocalPort returns the current loopback port, 0 when no tunnel exists.
func (m *Manager) LocalPort() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localPort
}

// Stop tears the tunnel down. Teardown is best-effort and never returns an
// error; a half-dead tunnel must not block shutdown or reconnection.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.listener != nil {
		m.listener.Close()
		m.listener = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.alive = false
	m.localPort = 0
}

func (m *Manager) markDead() {
	m.mu.Lock()
	m.alive = false
	m.mu.Unlock()
}

func (m *Manager) acceptLoop(listener net.Listener, conn sshConn) {
	for {
		local, err := listener.Accept()
		if err != nil {
			return
		}
		go m.forward(local, conn)
	}
}

// forward bridges one accepted loopback connection to the remote target
// through the SSH hop, copying bytes in both directions until either side
// closes.
func (m *Manager) forward(local net.Conn, conn sshConn) {
	defer local.Close()

	remote, err := conn.Dial("tcp", net.JoinHostPort(m.cfg.RemoteHost, strconv.Itoa(m.cfg.RemotePort)))
	if err != nil {
		m.log.Warn("tunnel forward failed", "error", err)
		m.markDead()
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

func (m *Manager) keepalive(ctx context.Context, conn sshConn) {
	ticker := time.NewTicker(m.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := conn.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				m.log.Warn("ssh keepalive failed, marking tunnel stale", "error", err)
				m.markDead()
				return
			}
		}
	}
}

func dialSSH(ctx context.Context, cfg Config) (sshConn, error) {
	clientCfg := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.ConnectTimeout,
	}
	if cfg.EnableLegacyAlgorithms {
		applyLegacyAlgorithms(clientCfg)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	netConn, err := (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	sshc, chans, reqs, err := ssh.NewClientConn(netConn, addr, clientCfg)
	if err != nil {
		netConn.Close()
		return nil, err
	}
	return ssh.NewClient(sshc, chans, reqs), nil
}

// applyLegacyAlgorithms extends the client's negotiated set with algorithms
// dropped from modern defaults, for bastions running very old sshd builds.
func applyLegacyAlgorithms(cfg *ssh.ClientConfig) {
	cfg.KeyExchanges = append(cfg.KeyExchanges,
		"diffie-hellman-group1-sha1",
		"diffie-hellman-group14-sha1",
		"diffie-hellman-group-exchange-sha1",
	)
	cfg.Ciphers = append(cfg.Ciphers,
		"aes128-cbc",
		"aes256-cbc",
		"3des-cbc",
	)
	cfg.HostKeyAlgorithms = append(cfg.HostKeyAlgorithms,
		ssh.KeyAlgoRSA,
		ssh.KeyAlgoDSA,
	)
}
