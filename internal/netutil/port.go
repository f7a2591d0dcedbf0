package netutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/giantswarm/redisenv/internal/sentinel"
)

// ErrNoFreePort is returned by Allocate when no unreserved port could be
// bound within maxPortRetries attempts.
const ErrNoFreePort = sentinel.Error("no free port available")

// ErrPortInUse is returned by Reserve when the port is already held by
// another live instance of this process.
const ErrPortInUse = sentinel.Error("port already reserved")

// maxPortRetries bounds the kernel probes made by a single Allocate call.
const maxPortRetries = 20

// DefaultHost is the address Allocate probes when given an empty host.
const DefaultHost = "127.0.0.1"

// listenFunc opens a probe listener on an OS-assigned port of host.
type listenFunc func(host string) (*net.TCPListener, error)

func listenHost(host string) (*net.TCPListener, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, err
	}
	tl, ok := l.(*net.TCPListener)
	if !ok {
		_ = l.Close()
		return nil, fmt.Errorf("unexpected listener type: %T", l)
	}
	return tl, nil
}

// PortRegistry tracks ports handed out to instances of this process.
// It is safe for concurrent use.
type PortRegistry struct {
	mu     sync.Mutex
	ports  map[int]struct{}
	listen listenFunc
	log    *slog.Logger
}

// NewPortRegistry creates an empty registry. A nil logger falls back to
// slog.Default().
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports:  make(map[int]struct{}),
		listen: listenHost,
		log:    logger,
	}
}

func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Reserve registers a caller-chosen port. It returns ErrPortInUse if another
// instance of this process already holds it.
func (r *PortRegistry) Reserve(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("reserve port %d: out of range", port)
	}
	if !r.reserve(port) {
		return fmt.Errorf("reserve port %d: %w", port, ErrPortInUse)
	}
	return nil
}

// Len returns the number of ports currently registered.
func (r *PortRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ports)
}

// Release forgets a port. Releasing an unknown port is a no-op.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Allocate returns a port that was bindable on host a moment ago and is not
// held by any other live instance of this process. The caller must Release
// it. An empty host means DefaultHost.
//
// The probe binds the same address the server will bind, because a port
// that is free on 127.0.0.1 can still be taken on ::1 or on the wildcard
// address. The probe listener stays open until the port is registered, so a
// concurrent Allocate cannot be handed the same number by the kernel.
//
// Ports are registered by number only. Two instances bound to different
// addresses never share a port number, even where the kernel would allow it.
func (r *PortRegistry) Allocate(host string) (int, error) {
	if host == "" {
		host = DefaultHost
	}
	var lastErr error
	for range maxPortRetries {
		l, err := r.listen(host)
		if err != nil {
			lastErr = err
			r.log.Debug("port probe failed, retrying", "host", host, "error", err)
			continue
		}
		tcpAddr, isTCP := l.Addr().(*net.TCPAddr)
		if !isTCP {
			_ = l.Close()
			return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		port := tcpAddr.Port
		ok := r.reserve(port)
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close probe listener", "port", port, "error", closeErr)
		}
		if ok {
			return port, nil
		}
		r.log.Debug("port already in registry, retrying", "port", port)
	}
	if lastErr != nil {
		return 0, errors.Join(fmt.Errorf("allocate port on %s: exhausted %d attempts: %w", host, maxPortRetries, ErrNoFreePort), lastErr)
	}
	return 0, fmt.Errorf("allocate port on %s: exhausted %d attempts: %w", host, maxPortRetries, ErrNoFreePort)
}
