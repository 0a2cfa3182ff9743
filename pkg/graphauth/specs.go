package graphauth

import (
	"context"
	"time"
)

const (
	// DefaultPublicClientID is the well-known Microsoft Graph PowerShell
	// public client used for interactive delegated sign-in.
	DefaultPublicClientID = "14d82eec-204b-4c2f-b7e8-296a70dab67e"

	// DefaultRedirectURI is the loopback redirect target for interactive
	// sign-in.
	DefaultRedirectURI = "http://localhost"

	// commonTenant is the tenant-agnostic authority suffix used for
	// interactive delegated acquisition.
	commonTenant = "common"
)

// IssueRequest contains the parameters for one token request against the
// identity service.
type IssueRequest struct {
	// Authority is the tenant-qualified token-issuance endpoint.
	Authority string

	// ClientID identifies the application requesting the token.
	ClientID string

	// TenantID is the directory tenant, empty for the common authority.
	TenantID string

	// ClientSecret authenticates a confidential client; empty for
	// interactive requests.
	ClientSecret string

	// RedirectURI is the loopback redirect for interactive requests.
	RedirectURI string

	// Scopes are the requested permission scopes.
	Scopes []string

	// ForceRefresh bypasses any cache inside the identity library and
	// requests a freshly issued token.
	ForceRefresh bool

	// Interactive selects the delegated user-interactive flow. The call
	// may block on human input; no timeout is added on top of the
	// identity library's own.
	Interactive bool
}

// TokenIssuer abstracts the external identity service that issues tokens.
// Implementations may perform network I/O and, for interactive requests,
// block on user interaction. The issuer does not retry: a failed issue is
// surfaced immediately.
type TokenIssuer interface {
	Issue(ctx context.Context, req IssueRequest) (*SessionToken, error)
}

// AcquireEnv carries everything a strategy needs for one acquisition
// attempt: the resolved cloud endpoints, the token issuer, the caller's
// connect modifiers, and the clock.
type AcquireEnv struct {
	Endpoints EndpointSet
	Issuer    TokenIssuer
	Options   ConnectOptions
	Now       func() time.Time
}

func (e AcquireEnv) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// AcquireSpec is the single capability all acquisition strategies share:
// produce a SessionToken. Exactly one spec is used per Connect call; the
// strategies are mutually exclusive, not combinable.
type AcquireSpec interface {
	// Method returns the strategy identifier.
	Method() AcquireMethod

	// Validate checks the spec fields before any acquisition runs.
	Validate() error

	// Acquire runs one acquisition attempt and returns the token or an
	// error. It never touches session state.
	Acquire(ctx context.Context, env AcquireEnv) (*SessionToken, error)
}

// ExternalTokenSpec hands in a token the host process already holds, for
// example one obtained from a shared cache. No network call is made.
type ExternalTokenSpec struct {
	// Token is the caller-supplied token.
	Token *SessionToken
}

// Method implements AcquireSpec.
func (s *ExternalTokenSpec) Method() AcquireMethod {
	return MethodExternalToken
}

// Validate implements AcquireSpec. Nil-ness and expiry are checked at
// acquisition time against the current instant.
func (s *ExternalTokenSpec) Validate() error {
	return nil
}

// Acquire implements AcquireSpec.
func (s *ExternalTokenSpec) Acquire(ctx context.Context, env AcquireEnv) (*SessionToken, error) {
	if s.Token == nil {
		return nil, ErrInvalidToken("external token is nil").
			WithOperation("acquire").
			WithDetail("reason", "nil")
	}
	if s.Token.ExpiredAt(env.now()) {
		return nil, ErrInvalidToken("external token is expired").
			WithOperation("acquire").
			WithDetail("reason", "expired").
			WithDetail("expires_on", s.Token.ExpiresOn)
	}

	return &SessionToken{
		Value:       s.Token.Value,
		ExpiresOn:   s.Token.ExpiresOn,
		AcquiredVia: MethodExternalToken,
	}, nil
}

// ClientSecretSpec performs a non-interactive confidential-client token
// request against the tenant-qualified authority.
type ClientSecretSpec struct {
	// ClientID is the application (client) ID.
	ClientID string

	// TenantID is the directory tenant ID.
	TenantID string

	// ClientSecret is the application secret.
	ClientSecret string

	// Scopes are the requested scopes; defaults to the cloud's Graph
	// ".default" scope.
	Scopes []string
}

// Method implements AcquireSpec.
func (s *ClientSecretSpec) Method() AcquireMethod {
	return MethodClientSecret
}

// Validate implements AcquireSpec.
func (s *ClientSecretSpec) Validate() error {
	if s.ClientID == "" {
		return ErrValidation("client_id is required")
	}
	if s.TenantID == "" {
		return ErrValidation("tenant_id is required")
	}
	if s.ClientSecret == "" {
		return ErrValidation("client_secret is required")
	}
	return nil
}

// Acquire implements AcquireSpec. ForceRefresh defaults to true so a
// long-running documentation pass starts with the longest usable token
// lifetime; NeverRefreshToken opts back into the identity library's cache.
func (s *ClientSecretSpec) Acquire(ctx context.Context, env AcquireEnv) (*SessionToken, error) {
	token, err := env.Issuer.Issue(ctx, IssueRequest{
		Authority:    env.Endpoints.Authority(s.TenantID),
		ClientID:     s.ClientID,
		TenantID:     s.TenantID,
		ClientSecret: s.ClientSecret,
		Scopes:       s.scopes(env.Endpoints),
		ForceRefresh: !env.Options.NeverRefreshToken,
	})
	if err != nil {
		return nil, ErrAuthFailed("confidential client token request failed").
			WithCloud(env.Endpoints.Cloud).
			WithOperation("acquire").
			WithCause(err)
	}
	if token == nil || token.ExpiredAt(env.now()) {
		return nil, ErrAuthFailed("identity service returned no usable token").
			WithCloud(env.Endpoints.Cloud).
			WithOperation("acquire")
	}

	return &SessionToken{
		Value:       token.Value,
		ExpiresOn:   token.ExpiresOn,
		AcquiredVia: MethodClientSecret,
	}, nil
}

func (s *ClientSecretSpec) scopes(endpoints EndpointSet) []string {
	if len(s.Scopes) > 0 {
		return s.Scopes
	}
	return []string{endpoints.GraphBaseURL + "/.default"}
}

// DelegatedSpec performs an interactive delegated token request on behalf
// of a signed-in user, against the tenant-agnostic common authority.
type DelegatedSpec struct {
	// ClientID is the public client ID; defaults to DefaultPublicClientID.
	ClientID string

	// RedirectURI is the loopback redirect; defaults to DefaultRedirectURI.
	RedirectURI string

	// Scopes are the requested scopes; defaults to the cloud's Graph
	// ".default" scope.
	Scopes []string
}

// Method implements AcquireSpec.
func (s *DelegatedSpec) Method() AcquireMethod {
	return MethodDelegated
}

// Validate implements AcquireSpec. All fields have defaults.
func (s *DelegatedSpec) Validate() error {
	return nil
}

// Acquire implements AcquireSpec. The call blocks until the user completes
// or abandons the interactive prompt.
func (s *DelegatedSpec) Acquire(ctx context.Context, env AcquireEnv) (*SessionToken, error) {
	clientID := s.ClientID
	if clientID == "" {
		clientID = DefaultPublicClientID
	}
	redirect := s.RedirectURI
	if redirect == "" {
		redirect = DefaultRedirectURI
	}

	token, err := env.Issuer.Issue(ctx, IssueRequest{
		Authority:   env.Endpoints.Authority(commonTenant),
		ClientID:    clientID,
		RedirectURI: redirect,
		Scopes:      s.scopes(env.Endpoints),
		Interactive: true,
	})
	if err != nil {
		return nil, ErrAuthFailed("interactive token request failed").
			WithCloud(env.Endpoints.Cloud).
			WithOperation("acquire").
			WithCause(err)
	}
	if token == nil || token.ExpiredAt(env.now()) {
		return nil, ErrAuthFailed("identity service returned no usable token").
			WithCloud(env.Endpoints.Cloud).
			WithOperation("acquire")
	}

	return &SessionToken{
		Value:       token.Value,
		ExpiresOn:   token.ExpiresOn,
		AcquiredVia: MethodDelegated,
	}, nil
}

func (s *DelegatedSpec) scopes(endpoints EndpointSet) []string {
	if len(s.Scopes) > 0 {
		return s.Scopes
	}
	return []string{endpoints.GraphBaseURL + "/.default"}
}
