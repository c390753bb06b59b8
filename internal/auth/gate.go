// Package auth implements the shared-password gate in front of a session.
package auth

import (
	"crypto/subtle"
	"errors"
)

// State is the gate's position in its lifecycle.
type State string

const (
	// StateUnauthenticated is the initial state before any prompt is shown.
	StateUnauthenticated State = "unauthenticated"
	// StateAwaitingPassword means the prompt is shown and no correct
	// password has been submitted yet.
	StateAwaitingPassword State = "awaiting_password"
	// StateAuthenticated means the correct password was submitted.
	StateAuthenticated State = "authenticated"
)

var (
	// ErrNotConfigured is returned when no shared password is configured.
	// The gate fails closed: nothing can authenticate.
	ErrNotConfigured = errors.New("auth: APP_PASSWORD is not configured")
	// ErrWrongPassword is returned on a mismatched submission. The caller
	// may retry; the gate stays in StateAwaitingPassword.
	ErrWrongPassword = errors.New("auth: wrong password")
)

// Gate checks a submitted password against a preconfigured secret.
// It is session-scoped: no persistence, no lockout, no rate limiting.
type Gate struct {
	secret string
	state  State
}

// NewGate creates a gate for the given shared secret. An empty secret
// produces a fail-closed gate that rejects every submission.
func NewGate(secret string) *Gate {
	return &Gate{secret: secret, state: StateUnauthenticated}
}

// State reports the current gate state.
func (g *Gate) State() State {
	return g.state
}

// Configured reports whether a shared secret is set.
func (g *Gate) Configured() bool {
	return g.secret != ""
}

// Authenticated reports whether the gate has been passed.
func (g *Gate) Authenticated() bool {
	return g.state == StateAuthenticated
}

// Submit checks password against the secret. A correct submission moves the
// gate to StateAuthenticated and is idempotent; a wrong one leaves the gate
// in StateAwaitingPassword and returns ErrWrongPassword.
func (g *Gate) Submit(password string) error {
	if g.secret == "" {
		return ErrNotConfigured
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(g.secret)) == 1 {
		g.state = StateAuthenticated
		return nil
	}

	if g.state != StateAuthenticated {
		g.state = StateAwaitingPassword
	}
	return ErrWrongPassword
}
