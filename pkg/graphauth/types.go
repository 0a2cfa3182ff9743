// Package graphauth provides the authentication session core for entradoc:
// sovereign-cloud endpoint resolution, token acquisition strategies, and the
// per-process session holding the active cloud and token.
package graphauth

import (
	"time"
)

// Cloud identifies a sovereign cloud environment.
type Cloud string

const (
	// CloudCommercial is the worldwide commercial cloud.
	CloudCommercial Cloud = "commercial"
	// CloudGovernment is the US Government cloud.
	CloudGovernment Cloud = "government"
	// CloudGCCHigh is the high-compliance US Government cloud.
	CloudGCCHigh Cloud = "gcchigh"
)

// AcquireMethod identifies how a token was (or will be) acquired.
type AcquireMethod string

const (
	// MethodExternalToken indicates a caller-supplied token.
	MethodExternalToken AcquireMethod = "external_token"
	// MethodClientSecret indicates silent confidential-client acquisition.
	MethodClientSecret AcquireMethod = "client_secret"
	// MethodDelegated indicates interactive delegated acquisition.
	MethodDelegated AcquireMethod = "delegated"
)

// EndpointSet holds the endpoints of one sovereign cloud.
type EndpointSet struct {
	// Cloud is the cloud this set belongs to.
	Cloud Cloud

	// AuthorityURL is the base token-issuance endpoint. It is
	// tenant-qualified at request time (authority + "/" + tenant).
	AuthorityURL string

	// GraphBaseURL is the base URL of the Graph API in this cloud.
	GraphBaseURL string
}

// Authority returns the tenant-qualified authority URL.
func (e EndpointSet) Authority(tenant string) string {
	return e.AuthorityURL + "/" + tenant
}

// SessionToken is an acquired credential. It is immutable: a refresh
// produces a new SessionToken, never mutates an existing one.
type SessionToken struct {
	// Value is the opaque access token.
	Value string

	// ExpiresOn is the UTC instant the token stops being usable.
	ExpiresOn time.Time

	// AcquiredVia records the strategy that produced the token.
	AcquiredVia AcquireMethod
}

// ExpiredAt reports whether the token is unusable at the given instant.
// A token expiring exactly at the instant is expired: it must not be
// handed to a caller that could use it after the boundary tick.
func (t *SessionToken) ExpiredAt(now time.Time) bool {
	return !t.ExpiresOn.After(now)
}

// ConnectOptions are the caller-intent modifiers for a Connect call.
type ConnectOptions struct {
	// ForceReconnect re-acquires even when a valid token exists.
	// Only meaningful for the interactive strategy.
	ForceReconnect bool

	// NeverRefreshToken reuses a valid cached token instead of
	// re-acquiring, and disables force-refresh at the identity library.
	NeverRefreshToken bool
}

// ConnectStatus describes the outcome of a successful Connect call.
type ConnectStatus string

const (
	// StatusConnected indicates a token was acquired.
	StatusConnected ConnectStatus = "connected"
	// StatusAlreadyConnected indicates a valid token was reused without
	// contacting the identity service.
	StatusAlreadyConnected ConnectStatus = "already_connected"
	// StatusReconnected indicates an explicit forced re-acquisition.
	StatusReconnected ConnectStatus = "reconnected"
)

// ConnectResult reports the outcome of a Connect call.
type ConnectResult struct {
	// Status describes how the session reached its connected state.
	Status ConnectStatus

	// Cloud is the endpoint set now active on the session.
	Cloud EndpointSet

	// Token is the session's active token after the call.
	Token *SessionToken
}
