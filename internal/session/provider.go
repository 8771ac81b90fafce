// Package session resolves who the current actor is and which role they
// hold. A Provider owns the session lifecycle; the Resolver observes it and
// looks up the actor's profile whenever the session changes.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/lumen-foundation/lumen/internal/capability"
)

var (
	// ErrInvalidCredentials indicates a failed sign-in.
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrEmailTaken indicates sign-up with an address already registered.
	ErrEmailTaken = errors.New("session: email already registered")
	// ErrRoleNotAllowed indicates sign-up requested a role that must be
	// granted by an administrator.
	ErrRoleNotAllowed = errors.New("session: role cannot be self-assigned")
	// ErrSessionNotFound indicates an unknown, expired or revoked token.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrProfileNotFound indicates an actor without a profile row.
	ErrProfileNotFound = errors.New("session: profile not found")
)

// Session is an authenticated session as issued by a Provider.
type Session struct {
	Token     string    `json:"-"`
	ActorID   string    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Credentials identify an actor at sign-in and sign-up.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SignUpDetails is the profile metadata supplied at sign-up.
type SignUpDetails struct {
	DisplayName string          `json:"display_name" validate:"omitempty,max=120"`
	Role        capability.Role `json:"role"`
}

// EventKind distinguishes provider notifications.
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
	EventRefreshed EventKind = "refreshed"
)

// Event is a session change notification. Session is nil after sign-out.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Provider is the external session lifecycle the resolver observes.
type Provider interface {
	// CurrentSession returns the active session, or nil when signed out.
	CurrentSession(ctx context.Context) (*Session, error)
	// Subscribe registers fn for every session change.
	Subscribe(fn func(Event)) (unsubscribe func())
	SignIn(ctx context.Context, creds Credentials) (*Session, error)
	SignUp(ctx context.Context, creds Credentials, details SignUpDetails) (*Session, error)
	SignOut(ctx context.Context) error
}

// Profile is an actor's role assignment.
type Profile struct {
	ActorID     string
	Role        capability.Role
	DisplayName string
}

// ProfileSource looks up profiles by actor id. It returns an error matching
// ErrProfileNotFound when the actor has none.
type ProfileSource interface {
	Profile(ctx context.Context, actorID string) (Profile, error)
}
