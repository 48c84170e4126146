package egress

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// TorNetwork manages an embedded Tor daemon and derives circuit identities
// from its SOCKS port. Each identity uses distinct SOCKS credentials, which
// Tor maps to isolated circuits, so rotating identities really does change
// the exit path.
//
// Starting the daemon takes one to three minutes: it has to fetch directory
// information and build initial circuits before the SOCKS listener is
// usable.
type TorNetwork struct {
	process        *tornago.TorProcess
	socksAddr      string
	startupTimeout time.Duration
}

// TorOption configures a TorNetwork.
type TorOption func(*TorNetwork)

// WithStartupTimeout sets the maximum time to wait for Tor to bootstrap.
func WithStartupTimeout(timeout time.Duration) TorOption {
	return func(t *TorNetwork) {
		t.startupTimeout = timeout
	}
}

// NewTorNetwork creates an unstarted Tor manager. Call Start to launch the
// daemon.
func NewTorNetwork(opts ...TorOption) *TorNetwork {
	t := &TorNetwork{
		startupTimeout: 3 * time.Minute,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the embedded Tor daemon and blocks until it bootstraps or
// the startup timeout elapses. Ports are chosen by the OS.
func (t *TorNetwork) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(t.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = process.Stop()
		return ctx.Err()
	default:
	}

	t.process = process
	t.socksAddr = process.SocksAddr()
	return nil
}

// Stop shuts the daemon down. Safe to call on an unstarted instance.
func (t *TorNetwork) Stop() error {
	if t.process == nil {
		return nil
	}
	err := t.process.Stop()
	t.process = nil
	return err
}

// IsRunning reports whether the daemon is up.
func (t *TorNetwork) IsRunning() bool {
	return t.process != nil
}

// SocksAddr returns the daemon's SOCKS5 address ("host:port"), empty if the
// daemon is not running.
func (t *TorNetwork) SocksAddr() string {
	return t.socksAddr
}

// Identities derives n circuit identities from the running daemon.
func (t *TorNetwork) Identities(n int) ([]*Identity, error) {
	if !t.IsRunning() {
		return nil, fmt.Errorf("tor daemon is not running")
	}
	if n <= 0 {
		n = 1
	}

	ids := make([]*Identity, 0, n)
	for i := 0; i < n; i++ {
		id, err := NewTorCircuit(fmt.Sprintf("tor-%d", i), t.socksAddr, i)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
