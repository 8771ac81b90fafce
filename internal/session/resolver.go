package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lumen-foundation/lumen/internal/capability"
)

// State is the resolver's position in the sign-in lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateResolvingProfile
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateResolvingProfile:
		return "resolving_profile"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of the resolver.
type Snapshot struct {
	State       State
	Role        capability.Role
	ActorID     string
	DisplayName string
	Err         error
}

// Loading reports whether a profile fetch is in flight.
func (s Snapshot) Loading() bool { return s.State == StateResolvingProfile }

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// Resolver tracks the current actor and role. Profile lookups that fail
// resolve to capability.DefaultRole rather than blocking: a missing profile
// is silent, any other failure is kept in LastError.
type Resolver struct {
	provider Provider
	profiles ProfileSource
	matrix   *capability.Matrix
	logger   *slog.Logger

	mu           sync.RWMutex
	snap         Snapshot
	epoch        uint64
	ctx          context.Context
	unsubscribe  func()
	listeners    map[uint64]func(Snapshot)
	nextListener uint64
}

// NewResolver builds an unauthenticated resolver. Call Start to begin
// observing the provider.
func NewResolver(provider Provider, profiles ProfileSource, matrix *capability.Matrix, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider:  provider,
		profiles:  profiles,
		matrix:    matrix,
		ctx:       context.Background(),
		listeners: make(map[uint64]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.matrix == nil {
		r.matrix = capability.Default()
	}
	return r
}

// Start subscribes to provider notifications and resolves the current
// session. Profile fetches triggered by later notifications use ctx.
func (r *Resolver) Start(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	if r.unsubscribe == nil {
		r.unsubscribe = r.provider.Subscribe(func(ev Event) { r.apply(ev.Session) })
	}
	r.mu.Unlock()

	sess, err := r.provider.CurrentSession(ctx)
	if err != nil {
		r.apply(nil)
		return err
	}
	r.apply(sess)
	return nil
}

// Stop detaches from the provider.
func (r *Resolver) Stop() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Notify applies a session change delivered outside the subscription.
func (r *Resolver) Notify(ev Event) { r.apply(ev.Session) }

func (r *Resolver) apply(sess *Session) {
	r.mu.Lock()
	r.epoch++
	epoch := r.epoch
	ctx := r.ctx
	if sess == nil {
		r.snap = Snapshot{State: StateUnauthenticated}
		r.mu.Unlock()
		r.publish()
		return
	}
	r.snap = Snapshot{State: StateResolvingProfile, ActorID: sess.ActorID, Err: r.snap.Err}
	r.mu.Unlock()
	r.publish()

	profile, err := r.profiles.Profile(ctx, sess.ActorID)

	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		r.logger.Debug("discarding stale profile lookup", slog.String("actor_id", sess.ActorID))
		return
	}
	next := Snapshot{State: StateAuthenticated, ActorID: sess.ActorID, Role: capability.DefaultRole}
	switch {
	case err == nil:
		next.DisplayName = profile.DisplayName
		if role, ok := capability.ParseRole(string(profile.Role)); ok {
			next.Role = role
		} else {
			r.logger.Warn("profile carries unknown role, using default",
				slog.String("actor_id", sess.ActorID),
				slog.String("role", string(profile.Role)),
			)
		}
	case errors.Is(err, ErrProfileNotFound):
		r.logger.Info("actor has no profile, using default role", slog.String("actor_id", sess.ActorID))
	default:
		r.logger.Warn("profile lookup failed, using default role", slog.String("actor_id", sess.ActorID), slog.Any("error", err))
		next.Err = err
	}
	r.snap = next
	r.mu.Unlock()
	r.publish()
}

// Subscribe registers fn to receive a snapshot after every change.
func (r *Resolver) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Resolver) publish() {
	r.mu.RLock()
	snap := r.snap
	listeners := make([]func(Snapshot), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Snapshot returns the current view.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// State returns the lifecycle state.
func (r *Resolver) State() State { return r.Snapshot().State }

// Role returns the resolved role, or RoleNone when signed out or while the
// profile is still loading.
func (r *Resolver) Role() capability.Role { return r.Snapshot().Role }

// ActorID returns the signed-in actor, or "".
func (r *Resolver) ActorID() string { return r.Snapshot().ActorID }

// IsLoading reports whether a profile fetch is in flight.
func (r *Resolver) IsLoading() bool { return r.Snapshot().Loading() }

// LastError returns the last profile lookup failure other than not-found.
func (r *Resolver) LastError() error { return r.Snapshot().Err }

// Can reports whether the current role may perform action on resource.
func (r *Resolver) Can(resource string, action capability.Action) bool {
	return r.matrix.Permit(r.Role(), resource, action)
}

// CanCreate reports whether the current role may create rows of resource.
func (r *Resolver) CanCreate(resource string) bool { return r.Can(resource, capability.ActionCreate) }

// CanEdit reports whether the current role may edit rows of resource.
func (r *Resolver) CanEdit(resource string) bool { return r.Can(resource, capability.ActionEdit) }

// CanDelete reports whether the current role may delete rows of resource.
func (r *Resolver) CanDelete(resource string) bool { return r.Can(resource, capability.ActionDelete) }

// Matrix returns the capability table the resolver consults.
func (r *Resolver) Matrix() *capability.Matrix { return r.matrix }
