package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/remote/memory"
	"github.com/lumen-foundation/lumen/internal/resource"
)

type fakeProvider struct {
	mu        sync.Mutex
	current   *Session
	listeners map[int]func(Event)
	next      int
}

func newFakeProvider(current *Session) *fakeProvider {
	return &fakeProvider{current: current, listeners: make(map[int]func(Event))}
}

func (p *fakeProvider) CurrentSession(context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *fakeProvider) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) SignIn(_ context.Context, creds Credentials) (*Session, error) {
	sess := &Session{Token: "t-" + creds.Email, ActorID: creds.Email}
	p.emit(Event{Kind: EventSignedIn, Session: sess})
	return sess, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, creds Credentials, _ SignUpDetails) (*Session, error) {
	return p.SignIn(ctx, creds)
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.emit(Event{Kind: EventSignedOut})
	return nil
}

func (p *fakeProvider) emit(ev Event) {
	p.mu.Lock()
	p.current = ev.Session
	fns := make([]func(Event), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

type profileResult struct {
	profile Profile
	err     error
	gate    chan struct{}
}

type fakeProfiles struct {
	mu      sync.Mutex
	results map[string]profileResult
	asked   chan string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{results: make(map[string]profileResult), asked: make(chan string, 16)}
}

func (f *fakeProfiles) set(actor string, res profileResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[actor] = res
}

func (f *fakeProfiles) Profile(_ context.Context, actorID string) (Profile, error) {
	f.asked <- actorID
	f.mu.Lock()
	res, ok := f.results[actorID]
	f.mu.Unlock()
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	if res.gate != nil {
		<-res.gate
	}
	return res.profile, res.err
}

func signIn(p *fakeProvider, actor string) {
	p.emit(Event{Kind: EventSignedIn, Session: &Session{Token: "t-" + actor, ActorID: actor}})
}

func TestResolverStartsUnauthenticated(t *testing.T) {
	r := NewResolver(newFakeProvider(nil), newFakeProfiles(), nil)
	require.NoError(t, r.Start(context.Background()))

	assert.Equal(t, StateUnauthenticated, r.State())
	assert.Equal(t, capability.RoleNone, r.Role())
	assert.False(t, r.CanCreate(capability.ResourceNews))
}

func TestResolverUsesProfileRole(t *testing.T) {
	provider := newFakeProvider(nil)
	profiles := newFakeProfiles()
	profiles.set("ana", profileResult{profile: Profile{ActorID: "ana", Role: capability.RoleCommunicationsLead, DisplayName: "Ana"}})
	r := NewResolver(provider, profiles, nil)
	require.NoError(t, r.Start(context.Background()))

	signIn(provider, "ana")

	snap := r.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, capability.RoleCommunicationsLead, snap.Role)
	assert.Equal(t, "Ana", snap.DisplayName)
	assert.True(t, r.CanCreate(capability.ResourceNews))
	assert.False(t, r.CanCreate(capability.ResourceProjects))
}

func TestResolverMissingProfileFailsOpenToDefault(t *testing.T) {
	provider := newFakeProvider(&Session{ActorID: "nobody"})
	r := NewResolver(provider, newFakeProfiles(), nil)

	require.NoError(t, r.Start(context.Background()))

	assert.Equal(t, capability.DefaultRole, r.Role())
	assert.False(t, r.IsLoading())
	assert.NoError(t, r.LastError())
	assert.Equal(t, "nobody", r.ActorID())
}

func TestResolverLookupErrorRecordsError(t *testing.T) {
	provider := newFakeProvider(nil)
	profiles := newFakeProfiles()
	boom := errors.New("backend unavailable")
	profiles.set("ana", profileResult{err: boom})
	r := NewResolver(provider, profiles, nil)
	require.NoError(t, r.Start(context.Background()))

	signIn(provider, "ana")

	assert.Equal(t, StateAuthenticated, r.State())
	assert.Equal(t, capability.DefaultRole, r.Role())
	assert.ErrorIs(t, r.LastError(), boom)
	assert.False(t, r.IsLoading())
}

func TestResolverSignOutClearsRole(t *testing.T) {
	provider := newFakeProvider(nil)
	profiles := newFakeProfiles()
	profiles.set("root", profileResult{profile: Profile{Role: capability.RoleAdministrator}})
	r := NewResolver(provider, profiles, nil)
	require.NoError(t, r.Start(context.Background()))
	signIn(provider, "root")
	require.True(t, r.CanDelete(capability.ResourceProjects))

	require.NoError(t, provider.SignOut(context.Background()))

	assert.Equal(t, StateUnauthenticated, r.State())
	assert.Equal(t, capability.RoleNone, r.Role())
	for _, res := range capability.Default().Resources() {
		assert.False(t, r.CanCreate(res))
		assert.False(t, r.CanEdit(res))
		assert.False(t, r.CanDelete(res))
	}
}

func TestResolverPartnerCannotTouchProjects(t *testing.T) {
	provider := newFakeProvider(nil)
	profiles := newFakeProfiles()
	profiles.set("p", profileResult{profile: Profile{Role: capability.RolePartner}})
	r := NewResolver(provider, profiles, nil)
	require.NoError(t, r.Start(context.Background()))
	signIn(provider, "p")

	assert.False(t, r.CanCreate(capability.ResourceProjects))
	assert.False(t, r.CanEdit(capability.ResourceProjects))
	assert.False(t, r.CanDelete(capability.ResourceProjects))
}

func TestResolverDiscardsStaleLookup(t *testing.T) {
	provider := newFakeProvider(nil)
	profiles := newFakeProfiles()
	gate := make(chan struct{})
	profiles.set("first", profileResult{profile: Profile{Role: capability.RoleAdministrator}, gate: gate})
	profiles.set("second", profileResult{profile: Profile{Role: capability.RolePartner}})
	r := NewResolver(provider, profiles, nil)
	require.NoError(t, r.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		signIn(provider, "first")
	}()
	require.Equal(t, "first", <-profiles.asked)
	assert.True(t, r.IsLoading())

	signIn(provider, "second")
	require.Equal(t, "second", <-profiles.asked)
	assert.Equal(t, capability.RolePartner, r.Role())

	close(gate)
	<-done

	assert.Equal(t, capability.RolePartner, r.Role())
	assert.Equal(t, "second", r.ActorID())
}

func TestResolverSubscribeSeesTransitions(t *testing.T) {
	provider := newFakeProvider(nil)
	profiles := newFakeProfiles()
	profiles.set("ana", profileResult{profile: Profile{Role: capability.RoleProjectLead}})
	r := NewResolver(provider, profiles, nil)
	require.NoError(t, r.Start(context.Background()))

	var states []State
	unsubscribe := r.Subscribe(func(s Snapshot) { states = append(states, s.State) })
	signIn(provider, "ana")
	unsubscribe()
	signIn(provider, "ana")

	assert.Equal(t, []State{StateResolvingProfile, StateAuthenticated}, states)
}

func TestStoreProfilesUnknownRoleResolvesToDefault(t *testing.T) {
	ctx := context.Background()
	coll := memory.New[content.Profile]("profiles")
	actor, role := "ana", "superuser"
	lead, leadRole := "lee", "Project-Lead"
	require.NoError(t, coll.Seed(
		content.Profile{ActorID: &actor, Role: &role},
		content.Profile{ActorID: &lead, Role: &leadRole},
	))
	profiles := NewStoreProfiles(resource.New[content.Profile](coll), nil)

	p, err := profiles.Profile(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, capability.DefaultRole, p.Role)

	p, err = profiles.Profile(ctx, "lee")
	require.NoError(t, err)
	assert.Equal(t, capability.RoleProjectLead, p.Role)

	_, err = profiles.Profile(ctx, "ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestResolverCanonicalisesProfileRole(t *testing.T) {
	provider := newFakeProvider(nil)
	profiles := newFakeProfiles()
	profiles.set("ada", profileResult{profile: Profile{ActorID: "ada", Role: capability.Role("Administrator")}})
	profiles.set("bo", profileResult{profile: Profile{ActorID: "bo", Role: capability.Role("owner")}})
	r := NewResolver(provider, profiles, nil)
	require.NoError(t, r.Start(context.Background()))

	signIn(provider, "ada")
	assert.Equal(t, capability.RoleAdministrator, r.Role())
	assert.True(t, r.Role().Valid())
	assert.True(t, r.CanCreate(capability.ResourceProjects))

	signIn(provider, "bo")
	assert.Equal(t, capability.DefaultRole, r.Role())
	assert.NoError(t, r.LastError())
}
