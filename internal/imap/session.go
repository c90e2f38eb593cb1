// Package imap implements the protocol engine: session lifecycle over a
// single byte stream, tagged command dispatch with pipelining, and the
// command operations the reconciliation and splitting layers are built
// on. One Session owns exactly one stream; commands on it are serialized
// from the caller's perspective, though several may be in flight before
// any reply is consumed.
package imap

import (
	"bufio"
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mailtide/mailtide/internal/creds"
	"github.com/mailtide/mailtide/internal/wire"
)

// Transport selects how the byte stream to a server is established.
type Transport string

const (
	TransportPlain    Transport = "plain"
	TransportTLS      Transport = "tls"
	TransportStartTLS Transport = "starttls"
)

// ServerConfig describes one logical server.
type ServerConfig struct {
	Name      string
	Host      string
	Port      int
	Transport Transport
	TLSConfig *tls.Config

	// EOL is the line-ending convention in effect; defaults to CRLF.
	EOL string
	// StreamWindow, when non-zero, bounds the retained raw capture
	// buffer to a trailing byte window (high-throughput mode).
	StreamWindow int
}

// Session is the live connection to one logical server. Its mutable
// fields are guarded by mu; the owning task holds mu across each await.
type Session struct {
	server    string
	host      string
	port      int
	transport Transport

	mu       sync.Mutex
	conn     net.Conn
	br       *bufio.Reader
	bw       *bufio.Writer
	closed   bool
	greeting string
	preauth  bool
	caps     map[string]bool
	qresync  bool
	selected string
	selData  *SelectData
	tag      int
	lastCmd  time.Time
	eol      string
	window   int

	outstanding map[int]string    // tag -> command verb, until completion observed
	pending     map[int]*Response // completed, not yet awaited
	partial     []wire.List       // untagged units since the last completion
	capture     []byte            // raw received bytes (window-trimmed)

	logger *slog.Logger
}

// Server returns the logical server name the session belongs to.
func (s *Session) Server() string { return s.server }

// Greeting returns the server greeting text.
func (s *Session) Greeting() string { return s.greeting }

// Capable reports whether the server advertised the given capability.
func (s *Session) Capable(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps[strings.ToUpper(name)]
}

// Selected returns the currently selected mailbox, or "".
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Registry maps logical server identity to its live Session and runs the
// keepalive sweep. Entries are removed on Close; reopening a server that
// already has a live Session returns the existing one.
type Registry struct {
	logger   *slog.Logger
	provider creds.Provider

	sweepEvery time.Duration
	idleAfter  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used by the registry and its sessions.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithCredentials sets the credential provider consulted during login.
func WithCredentials(p creds.Provider) RegistryOption {
	return func(r *Registry) { r.provider = p }
}

// WithKeepalive overrides the sweep interval and the idle threshold
// after which a no-op probe is sent.
func WithKeepalive(every, idleAfter time.Duration) RegistryOption {
	return func(r *Registry) {
		r.sweepEvery = every
		r.idleAfter = idleAfter
	}
}

// NewRegistry builds a Registry. A logger and a credential provider are
// required.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		sessions:   map[string]*Session{},
		sweepEvery: time.Minute,
		idleAfter:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		return nil, errors.New("requires logger")
	}
	if r.provider == nil {
		return nil, errors.New("requires credential provider")
	}
	return r, nil
}

// Open returns the live Session for the server, establishing one if
// needed: dial, greeting, capability query, opportunistic in-band TLS
// upgrade, authentication, and incremental-resync enable.
func (r *Registry) Open(ctx context.Context, cfg ServerConfig) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[cfg.Name]; ok && !s.isClosed() {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	s, err := r.dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.handshake(ctx, cfg, r.provider); err != nil {
		s.shutdown()
		return nil, err
	}

	r.mu.Lock()
	r.sessions[cfg.Name] = s
	r.mu.Unlock()

	r.logger.Info("session opened",
		slog.String("server", cfg.Name),
		slog.String("transport", string(cfg.Transport)),
		slog.String("greeting", s.greeting))
	return s, nil
}

func (r *Registry) dial(ctx context.Context, cfg ServerConfig) (*Session, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var (
		conn net.Conn
		err  error
	)
	switch cfg.Transport {
	case TransportTLS:
		dialer := &tls.Dialer{Config: cfg.TLSConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	case TransportPlain, TransportStartTLS, "":
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	default:
		err = errors.Errorf("unknown transport %q", cfg.Transport)
	}
	if err != nil {
		return nil, &TransportError{Server: cfg.Name, Transport: cfg.Transport, Err: err}
	}

	eol := cfg.EOL
	if eol == "" {
		eol = "\r\n"
	}
	s := &Session{
		server:      cfg.Name,
		host:        cfg.Host,
		port:        cfg.Port,
		transport:   cfg.Transport,
		conn:        conn,
		br:          bufio.NewReader(conn),
		bw:          bufio.NewWriter(conn),
		caps:        map[string]bool{},
		eol:         eol,
		window:      cfg.StreamWindow,
		lastCmd:     time.Now(),
		outstanding: map[int]string{},
		pending:     map[int]*Response{},
		logger:      r.logger,
	}
	return s, nil
}

// handshake runs the probe -> upgrade-or-continue -> authenticate state
// machine. The in-band TLS upgrade happens before any credentials are
// sent; on upgrade failure the insecure stream stays in use.
func (s *Session) handshake(ctx context.Context, cfg ServerConfig, provider creds.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readGreeting(ctx); err != nil {
		return &TransportError{Server: s.server, Transport: s.transport, Err: err}
	}

	if err := s.queryCapabilities(ctx); err != nil {
		return &TransportError{Server: s.server, Transport: s.transport, Err: err}
	}

	if s.transport != TransportTLS && s.caps["STARTTLS"] {
		if err := s.upgradeTLS(ctx, cfg.TLSConfig); err != nil {
			// Upgrade refused: keep the insecure stream.
			s.logger.Warn("in-band TLS upgrade failed, continuing insecure",
				slog.String("server", s.server), slog.Any("error", err))
		}
	}

	if !s.preauth {
		if err := s.login(ctx, provider); err != nil {
			return err
		}
	}

	if s.caps["QRESYNC"] {
		if ok, _, err := s.runLocked(ctx, "ENABLE QRESYNC"); err == nil && ok {
			s.qresync = true
		}
	}
	return nil
}

// readGreeting consumes the untagged greeting line.
func (s *Session) readGreeting(ctx context.Context) error {
	line, err := s.readLogicalLine(ctx)
	if err != nil {
		return errors.Wrap(err, "reading greeting")
	}
	parsed, err := wire.Parse(wire.UnfoldLiterals(line))
	if err != nil || len(parsed) < 2 {
		return errors.Errorf("malformed greeting %q", line)
	}
	if atom, _ := parsed[0].(wire.Atom); atom != "*" {
		return errors.Errorf("greeting is not untagged: %q", line)
	}
	status, _ := parsed[1].(wire.Atom)
	switch strings.ToUpper(string(status)) {
	case "OK":
	case "PREAUTH":
		s.preauth = true
	case "BYE":
		return errors.Errorf("server refused connection: %q", line)
	default:
		return errors.Errorf("unexpected greeting status %q", status)
	}
	s.greeting = strings.TrimSpace(strings.TrimRight(string(line), "\r\n"))
	s.absorbCapAttrs(parsed)
	return nil
}

// queryCapabilities refreshes the capability set, skipping the round
// trip when the greeting already carried a capability code.
func (s *Session) queryCapabilities(ctx context.Context) error {
	if len(s.caps) > 0 {
		return nil
	}
	ok, resp, err := s.runLocked(ctx, "CAPABILITY")
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("capability query rejected: %s", resp.Text)
	}
	for _, line := range resp.Lines {
		if len(line) >= 2 && line[0] == wire.Atom("*") && strings.EqualFold(string(atomAt(line, 1)), "CAPABILITY") {
			for _, tok := range line[2:] {
				if a, isAtom := tok.(wire.Atom); isAtom {
					s.caps[strings.ToUpper(string(a))] = true
				}
			}
		}
	}
	return nil
}

// upgradeTLS performs the in-band upgrade on the existing stream and
// re-queries capabilities over the secured one.
func (s *Session) upgradeTLS(ctx context.Context, cfg *tls.Config) error {
	ok, resp, err := s.runLocked(ctx, "STARTTLS")
	if err != nil {
		return err
	}
	if !ok {
		return &ProtocolError{Status: resp.Status, Text: resp.Text}
	}

	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg = cfg.Clone()
		cfg.ServerName = s.host
	}
	tlsConn := tls.Client(s.conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		s.closed = true
		return errors.Wrap(err, "TLS handshake")
	}
	s.conn = tlsConn
	s.br = bufio.NewReader(tlsConn)
	s.bw = bufio.NewWriter(tlsConn)

	// The pre-upgrade capability set no longer applies.
	s.caps = map[string]bool{}
	return s.queryCapabilities(ctx)
}

// Close tears the session down. It is idempotent and always succeeds.
func (r *Registry) Close(s *Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	if r.sessions[s.server] == s {
		delete(r.sessions, s.server)
	}
	r.mu.Unlock()

	s.mu.Lock()
	if !s.closed {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if tag, err := s.sendLocked("LOGOUT"); err == nil {
			_, _ = s.awaitLocked(ctx, tag)
		}
		cancel()
	}
	s.mu.Unlock()
	s.shutdown()
}

// CloseAll closes every live session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		r.Close(s)
	}
}

// StartKeepalive runs the periodic sweep until ctx is canceled. Every
// live session whose last command is older than the idle threshold gets
// a no-op probe so the server does not drop it.
func (r *Registry) StartKeepalive(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

func (r *Registry) sweep(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.keepalive(ctx, r.idleAfter)
	}
}

// keepalive probes an idle session. A session busy with its owner is
// skipped; it is not idle.
func (s *Session) keepalive(ctx context.Context, idleAfter time.Duration) {
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()
	if s.closed || time.Since(s.lastCmd) < idleAfter {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, _, err := s.runLocked(probeCtx, "NOOP"); err != nil {
		s.logger.Warn("keepalive probe failed",
			slog.String("server", s.server), slog.Any("error", err))
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) shutdown() {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}
