package graphauth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds the process's authentication state: the active cloud
// endpoint set and the active token. It is an explicit object owned by the
// caller's top-level context and passed to every collaborator that needs a
// token.
//
// The internal mutex serializes concurrent Connect calls rather than
// merging them: the design still assumes one logical connect at a time,
// and a second caller blocks until the first finishes (including the wait
// on human input for interactive acquisition).
type Session struct {
	mu        sync.Mutex
	id        string
	endpoints *EndpointRegistry
	issuer    TokenIssuer
	now       func() time.Time

	activeCloud EndpointSet
	hasCloud    bool
	activeToken *SessionToken
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithEndpoints sets the endpoint registry.
func WithEndpoints(r *EndpointRegistry) SessionOption {
	return func(s *Session) {
		s.endpoints = r
	}
}

// WithIssuer sets the token issuer.
func WithIssuer(i TokenIssuer) SessionOption {
	return func(s *Session) {
		s.issuer = i
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates an empty session. Without options it resolves clouds
// from DefaultEndpoints and issues tokens through MSAL.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:        uuid.New().String(),
		endpoints: DefaultEndpoints,
		issuer:    NewMSALIssuer(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Connect resolves the cloud, applies the freshness policy against the
// current session state, and, when a refresh is needed, runs the given
// acquisition strategy and stores the resulting token.
//
// The active cloud is set before acquisition starts, so collaborators can
// read the correct Graph base URL for error messages even when acquisition
// fails. A failed acquisition never overwrites a previously valid token.
func (s *Session) Connect(ctx context.Context, cloud Cloud, spec AcquireSpec, opts ConnectOptions) (*ConnectResult, error) {
	set, err := s.endpoints.Resolve(cloud)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeCloud = set
	s.hasCloud = true

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	switch decideRefresh(s.activeToken, spec.Method(), opts, s.now()) {
	case actionReuse:
		return &ConnectResult{Status: StatusConnected, Cloud: set, Token: s.activeToken}, nil
	case actionAlreadyConnected:
		return &ConnectResult{Status: StatusAlreadyConnected, Cloud: set, Token: s.activeToken}, nil
	case actionReconnect:
		token, err := s.acquire(ctx, set, spec, opts)
		if err != nil {
			return nil, err
		}
		return &ConnectResult{Status: StatusReconnected, Cloud: set, Token: token}, nil
	default:
		token, err := s.acquire(ctx, set, spec, opts)
		if err != nil {
			return nil, err
		}
		return &ConnectResult{Status: StatusConnected, Cloud: set, Token: token}, nil
	}
}

// acquire runs the strategy and stores its token. Caller holds s.mu.
func (s *Session) acquire(ctx context.Context, set EndpointSet, spec AcquireSpec, opts ConnectOptions) (*SessionToken, error) {
	token, err := spec.Acquire(ctx, AcquireEnv{
		Endpoints: set,
		Issuer:    s.issuer,
		Options:   opts,
		Now:       s.now,
	})
	if err != nil {
		// Session state untouched: a still-usable cached credential
		// must survive a failed re-acquisition.
		return nil, err
	}

	s.activeToken = token
	return token, nil
}

// ActiveToken returns the session's active token, or a not-connected error
// if no strategy has succeeded yet.
func (s *Session) ActiveToken() (*SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeToken == nil {
		return nil, ErrNotConnected().WithOperation("active_token")
	}
	return s.activeToken, nil
}

// ActiveCloud returns the endpoint set selected by the most recent Connect
// call, or a not-connected error if Connect was never called.
func (s *Session) ActiveCloud() (EndpointSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCloud {
		return EndpointSet{}, ErrNotConnected().WithOperation("active_cloud")
	}
	return s.activeCloud, nil
}

// GraphBaseURL returns the active cloud's Graph base URL, used by
// collaborators to construct authenticated API requests.
func (s *Session) GraphBaseURL() (string, error) {
	set, err := s.ActiveCloud()
	if err != nil {
		return "", err
	}
	return set.GraphBaseURL, nil
}

// defaultSession backs the package-level convenience API for embedders
// that want a single process-wide session.
var defaultSession = NewSession()

// DefaultSession returns the package-level session.
func DefaultSession() *Session {
	return defaultSession
}

// SetDefaultSession replaces the package-level session (useful for testing).
func SetDefaultSession(s *Session) {
	defaultSession = s
}

// Connect connects the package-level session.
func Connect(ctx context.Context, cloud Cloud, spec AcquireSpec, opts ConnectOptions) (*ConnectResult, error) {
	return defaultSession.Connect(ctx, cloud, spec, opts)
}

// ActiveToken returns the package-level session's active token.
func ActiveToken() (*SessionToken, error) {
	return defaultSession.ActiveToken()
}
