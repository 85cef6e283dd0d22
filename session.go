package smbsession

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State is the authentication state of a Session.
type State int

const (
	StateUnconnected State = iota
	StateConnectedUnauthenticated
	StateAuthenticatedUser
	StateAuthenticatedNull
)

func (s State) String() string {
	switch s {
	case StateConnectedUnauthenticated:
		return "connected"
	case StateAuthenticatedUser:
		return "authenticated"
	case StateAuthenticatedNull:
		return "null-session"
	default:
		return "unconnected"
	}
}

// Outcome is the result of Login or Rebuild.
type Outcome int

const (
	// OutcomeFailed means no authenticated session exists. LastError has the cause.
	OutcomeFailed Outcome = iota
	// OutcomeSuccess means the session is authenticated with the credentials it was given.
	OutcomeSuccess
	// OutcomeDegraded means the credentials were rejected and the session fell
	// back to a null session.
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "failed"
	}
}

// OK reports whether the session is usable after this outcome.
func (o Outcome) OK() bool {
	return o != OutcomeFailed
}

type authAttempt int

const (
	attemptPrimary authAttempt = iota
	attemptAnonymous
)

// loginAttempts bounds Login: the configured credentials, then at most one
// null session fallback.
var loginAttempts = [...]authAttempt{attemptPrimary, attemptAnonymous}

// Session is one authenticated connection to one SMB server.
//
// A Session is not safe for concurrent use. All methods block until the
// server responds; callers run one Session per goroutine.
type Session struct {
	id        string
	host      string
	port      int
	timeout   time.Duration
	transport Transport
	retry     *RetryPolicy
	log       logrus.FieldLogger

	conn    Conn
	creds   Credentials
	state   State
	lastErr error
	closed  bool
}

// New creates a Session for cfg.Server. No connection is made until Login.
func New(cfg *Config) (*Session, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()

	return &Session{
		id:        id,
		host:      cfg.Server,
		port:      cfg.Port,
		timeout:   cfg.ConnTimeout,
		transport: cfg.Transport,
		retry:     cfg.RetryPolicy,
		log: cfg.Logger.WithFields(logrus.Fields{
			"host":    cfg.Server,
			"session": id,
		}),
		creds: cfg.credentials(),
		state: StateUnconnected,
	}, nil
}

// ID returns the identifier used in this session's log lines.
func (s *Session) ID() string { return s.id }

// Host returns the server this session talks to.
func (s *Session) Host() string { return s.host }

// State returns the current authentication state.
func (s *Session) State() State { return s.state }

// AuthMode returns the authentication mode the next login will use.
func (s *Session) AuthMode() AuthMode { return s.creds.Mode() }

// LastError returns the most recent failure recorded by Login, or nil.
func (s *Session) LastError() error { return s.lastErr }

// Authenticated reports whether share and directory listing may be attempted.
func (s *Session) Authenticated() bool {
	return s.conn != nil && (s.state == StateAuthenticatedUser || s.state == StateAuthenticatedNull)
}

// Login connects and authenticates. A new connection is made when none
// exists or forceRefresh is set; otherwise an authenticated session returns
// OutcomeSuccess without touching the network.
//
// If the server rejects the credentials with STATUS_LOGON_FAILURE or
// STATUS_PASSWORD_EXPIRED, the credentials are cleared and one null session
// login is attempted. Failures are recorded in LastError and logged, never
// returned as errors.
func (s *Session) Login(ctx context.Context, forceRefresh bool) Outcome {
	if s.closed {
		s.lastErr = ErrSessionClosed
		return OutcomeFailed
	}

	if !forceRefresh && s.Authenticated() {
		return OutcomeSuccess
	}

	outcome := OutcomeSuccess
	for _, attempt := range loginAttempts {
		ne := s.attempt(ctx)
		if ne == nil {
			s.lastErr = nil
			return outcome
		}

		s.lastErr = ne
		if attempt == attemptAnonymous || !s.degradable(ne) {
			return OutcomeFailed
		}

		s.degrade(ne)
		outcome = OutcomeDegraded
	}

	return OutcomeFailed
}

// Rebuild discards the current connection and logs in again. Callers use it
// after a listing fails.
func (s *Session) Rebuild(ctx context.Context, reason string) Outcome {
	s.log.Debugf("Rebuilding connection to %s after error: %s", s.host, reason)
	return s.Login(ctx, true)
}

// Close discards the connection. A closed Session cannot log in again.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.discard()
}

// attempt replaces the connection and authenticates with the current
// credentials.
func (s *Session) attempt(ctx context.Context) *Error {
	_ = s.discard()

	conn, err := s.transport.Connect(ctx, s.host, s.port, s.timeout)
	if err != nil {
		ne := classify(err, KindTransport)
		if ne.Kind == KindCancelled {
			s.log.Debugf("%s: connection cancelled: %v", s.host, ne)
		} else {
			s.log.Debugf("%s: %v", s.host, ne)
		}
		return ne
	}

	s.conn = conn
	s.state = StateConnectedUnauthenticated

	if err := conn.Authenticate(ctx, s.creds.auth()); err != nil {
		ne := classify(err, KindAuthentication)
		_ = s.discard()

		if ne.Kind == KindAuthentication && !s.creds.IsAnonymous() && !s.degradable(ne) {
			s.log.Warnf("%s: login as %s failed: %v", s.host, s.creds, ne)
		} else {
			s.log.Debugf("%s: login as %s failed: %v", s.host, s.creds, ne)
		}
		return ne
	}

	if s.creds.IsAnonymous() {
		s.state = StateAuthenticatedNull
	} else {
		s.state = StateAuthenticatedUser
	}
	s.log.Debugf("%s: logged in as %s", s.host, s.creds)

	return nil
}

// degradable reports whether ne permits falling back to a null session.
func (s *Session) degradable(ne *Error) bool {
	if s.creds.IsAnonymous() || ne.Kind != KindAuthentication {
		return false
	}
	switch ne.AuthKind() {
	case AuthLogonFailure, AuthPasswordExpired:
		return true
	}
	return false
}

// degrade switches to a null session.
func (s *Session) degrade(ne *Error) {
	if ne.AuthKind() == AuthLogonFailure {
		s.log.Warnf("%s: %s", s.host, ne.Status)
	}
	s.log.Debugf("Switching to null session due to error: %v", ne)
	s.creds.clear()
}

// discard drops the current connection, if any.
func (s *Session) discard() error {
	s.state = StateUnconnected
	if s.conn == nil {
		return nil
	}

	conn := s.conn
	s.conn = nil
	if err := conn.Close(); err != nil {
		s.log.Debugf("%s: error closing connection: %v", s.host, err)
		return err
	}
	return nil
}

// classify normalizes err, attributing unrecognized failures to fallback.
func classify(err error, fallback Kind) *Error {
	ne := normalizeError(err)
	if ne.Kind == KindUnknown {
		cp := *ne
		cp.Kind = fallback
		cp.Message = err.Error()
		return &cp
	}
	return ne
}
