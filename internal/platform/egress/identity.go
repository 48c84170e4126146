// Package egress manages the network identities an investigation sends its
// traffic through: direct connections, SOCKS5 proxies, and Tor circuits.
// The rotator leases identities to the scheduler and tracks their health.
package egress

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// IdentityKind names the transport behind an identity.
type IdentityKind string

const (
	KindDirect IdentityKind = "direct"
	KindSOCKS5 IdentityKind = "socks5"
	KindTor    IdentityKind = "tor"
)

// Identity is one egress path. It is safe for concurrent use: the dialer is
// fixed at construction and HTTP clients are built per call.
type Identity struct {
	name   string
	kind   IdentityKind
	dialer proxy.Dialer

	// maxInFlight caps concurrent leases of this identity (0 = unlimited).
	maxInFlight int
}

// NewDirect returns the plain-connection identity.
func NewDirect() *Identity {
	return &Identity{
		name:   "direct",
		kind:   KindDirect,
		dialer: &net.Dialer{Timeout: 30 * time.Second},
	}
}

// NewSOCKS5 returns an identity routed through a SOCKS5 proxy at addr
// ("host:port"). auth may be nil.
func NewSOCKS5(name, addr string, auth *proxy.Auth) (*Identity, error) {
	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", addr, err)
	}
	return &Identity{
		name:   name,
		kind:   KindSOCKS5,
		dialer: dialer,
	}, nil
}

// NewTorCircuit returns an identity routed through a Tor SOCKS port with
// per-identity credentials. Tor isolates streams by SOCKS auth, so each
// distinct credential pair rides its own circuit.
func NewTorCircuit(name, socksAddr string, circuit int) (*Identity, error) {
	auth := &proxy.Auth{
		User:     fmt.Sprintf("osintgraph-%d", circuit),
		Password: "circuit",
	}
	dialer, err := proxy.SOCKS5("tcp", socksAddr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tor dialer for %s: %w", socksAddr, err)
	}
	return &Identity{
		name:   name,
		kind:   KindTor,
		dialer: dialer,
	}, nil
}

// Name identifies the identity for logging and rate-bucket keying.
func (id *Identity) Name() string { return id.name }

// Kind returns the transport behind the identity.
func (id *Identity) Kind() IdentityKind { return id.kind }

// SetMaxInFlight sets the concurrent-use cap enforced by the rotator.
func (id *Identity) SetMaxInFlight(n int) { id.maxInFlight = n }

// DialContext opens a connection through this identity.
func (id *Identity) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := id.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}

	// The dialer only supports blocking dials; run it in a goroutine so the
	// context can still cancel the wait.
	type dialResult struct {
		conn net.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := id.dialer.Dial(network, addr)
		ch <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		return r.conn, r.err
	}
}

// HTTPClient returns an HTTP client routed through this identity. Redirect
// and cookie behavior is left to the module.
func (id *Identity) HTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext:           id.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
