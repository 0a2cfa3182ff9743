package graphauth

import (
	"time"
)

// refreshAction is the outcome of the freshness policy for one Connect call.
type refreshAction int

const (
	// actionAcquire runs the strategy and replaces the active token.
	actionAcquire refreshAction = iota
	// actionReuse returns the cached token without contacting the
	// identity service.
	actionReuse
	// actionAlreadyConnected is actionReuse for the interactive strategy:
	// the no-op is reported as "already connected", not as an error.
	actionAlreadyConnected
	// actionReconnect is actionAcquire under an explicit force flag.
	actionReconnect
)

// decideRefresh evaluates the freshness policy at the start of every
// Connect call, before any strategy runs.
//
// An absent or expired token always acquires. For the interactive strategy
// a valid token short-circuits to "already connected" unless the caller
// forces reconnection; this keeps one process from popping repeated
// prompts. For the non-interactive strategies a valid token is reused only
// under NeverRefreshToken, otherwise re-acquired unconditionally.
func decideRefresh(existing *SessionToken, method AcquireMethod, opts ConnectOptions, now time.Time) refreshAction {
	if existing == nil || existing.ExpiredAt(now) {
		return actionAcquire
	}

	if method == MethodDelegated {
		if opts.ForceReconnect {
			return actionReconnect
		}
		return actionAlreadyConnected
	}

	if opts.NeverRefreshToken {
		return actionReuse
	}
	return actionAcquire
}
