package session

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
)

const (
	defaultMaxConns       = 2000
	defaultKeepAlive      = 60 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultIdleTimeout    = 90 * time.Second
)

// Option defines the shared connection pool configuration.
type Option struct {
	// MaxConns caps total pooled connections. Optional; default 2000.
	MaxConns int
	// MaxConnsPerHost caps pooled connections per host. Optional; default MaxConns/2.
	MaxConnsPerHost int
	// KeepAlive is the TCP keep-alive period. Optional; default 60s.
	KeepAlive time.Duration
	// ConnectTimeout bounds connection establishment. Optional; default 10s.
	ConnectTimeout time.Duration
	// IdleConnTimeout evicts idle pooled connections. Optional; default 90s.
	IdleConnTimeout time.Duration
}

func (opt *Option) init() {
	if opt.MaxConns <= 0 {
		opt.MaxConns = defaultMaxConns
	}
	if opt.MaxConnsPerHost <= 0 {
		opt.MaxConnsPerHost = opt.MaxConns / 2
	}
	if opt.KeepAlive <= 0 {
		opt.KeepAlive = defaultKeepAlive
	}
	if opt.ConnectTimeout <= 0 {
		opt.ConnectTimeout = defaultConnectTimeout
	}
	if opt.IdleConnTimeout <= 0 {
		opt.IdleConnTimeout = defaultIdleTimeout
	}
}

// Session is the shared pooled HTTP resource handed to clients.
type Session struct {
	client    *http.Client
	transport *http.Transport
}

func newSession(opt Option) *Session {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   opt.ConnectTimeout,
			KeepAlive: opt.KeepAlive,
		}).DialContext,
		MaxIdleConns:        opt.MaxConns,
		MaxIdleConnsPerHost: opt.MaxConnsPerHost,
		MaxConnsPerHost:     opt.MaxConnsPerHost,
		IdleConnTimeout:     opt.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Session{
		client:    &http.Client{Transport: transport},
		transport: transport,
	}
}

// Client returns the pooled HTTP client backed by this session.
func (s *Session) Client() *http.Client {
	if s == nil {
		return nil
	}
	return s.client
}

func (s *Session) close() {
	if s == nil {
		return
	}
	s.transport.CloseIdleConnections()
}

const (
	stateUninitialized uint32 = iota
	stateReady
	stateClosed
)

// Manager owns the process-wide shared session lifecycle.
//
// The lifecycle is uninitialized -> ready -> closed. Setup when ready is a
// no-op, Close when not ready is a no-op, and Setup after Close builds a
// fresh pool. Get never blocks on Setup/Close of unrelated callers.
type Manager struct {
	mu      sync.Mutex
	state   atomic.Uint32
	current atomic.Pointer[Session]
}

// NewManager creates an uninitialized manager.
func NewManager() *Manager {
	return &Manager{}
}

// Setup transitions the manager to ready and constructs the pooled session.
// It is idempotent while ready, so repeated application startup is safe.
func (m *Manager) Setup(opt Option) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Load() == stateReady {
		logs.Info("shared session already initialized. skipping setup")
		return
	}

	opt.init()
	logs.Infof("initializing shared session, max connections: %d", opt.MaxConns)

	m.current.Store(newSession(opt))
	m.state.Store(stateReady)
}

// Get returns the shared session when the manager is ready. Absence is not
// an error; callers fall back to an individually owned session.
func (m *Manager) Get() (*Session, bool) {
	if m.state.Load() != stateReady {
		return nil, false
	}

	s := m.current.Load()
	return s, s != nil
}

// Ready reports whether a shared session is currently available.
func (m *Manager) Ready() bool {
	_, ok := m.Get()
	return ok
}

// Close releases the pooled session. A no-op unless the manager is ready.
// Clients already bound to the session keep their reference; only the
// manager mutates the pool lifecycle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Load() != stateReady {
		logs.Info("shared session already closed or not initialized")
		return
	}

	logs.Info("closing shared session")
	m.state.Store(stateClosed)

	if s := m.current.Swap(nil); s != nil {
		s.close()
	}
}

var (
	std     *Manager
	stdOnce sync.Once
)

// Default returns the process-wide manager, constructed once on first use.
func Default() *Manager {
	stdOnce.Do(func() {
		std = NewManager()
	})
	return std
}

// Setup configures the process-wide manager. See Manager.Setup.
func Setup(opt Option) {
	Default().Setup(opt)
}

// Get returns the process-wide shared session, if any. See Manager.Get.
func Get() (*Session, bool) {
	return Default().Get()
}

// Close tears down the process-wide shared session. See Manager.Close.
func Close() {
	Default().Close()
}
