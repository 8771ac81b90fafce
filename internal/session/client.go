package session

import (
	"context"
	"errors"
	"sync"
)

// Client is the Provider for one caller, holding at most one session token.
type Client struct {
	auth *Service

	mu           sync.Mutex
	token        string
	listeners    map[uint64]func(Event)
	nextListener uint64
}

var _ Provider = (*Client)(nil)

// NewClient binds a provider to token, which may be empty.
func NewClient(auth *Service, token string) *Client {
	return &Client{auth: auth, token: token, listeners: make(map[uint64]func(Event))}
}

// Token returns the current token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// CurrentSession returns the session for the held token. An expired or
// revoked token is dropped and reported as signed out.
func (c *Client) CurrentSession(ctx context.Context) (*Session, error) {
	token := c.Token()
	if token == "" {
		return nil, nil
	}
	sess, err := c.auth.Sessions().Lookup(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		c.setToken(token, "")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Subscribe registers fn for session changes.
func (c *Client) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SignIn authenticates and notifies subscribers.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	sess, err := c.auth.SignIn(ctx, creds)
	if err != nil {
		return nil, err
	}
	c.replace(sess)
	return sess, nil
}

// SignUp registers and notifies subscribers.
func (c *Client) SignUp(ctx context.Context, creds Credentials, details SignUpDetails) (*Session, error) {
	sess, err := c.auth.SignUp(ctx, creds, details)
	if err != nil {
		return nil, err
	}
	c.replace(sess)
	return sess, nil
}

// SignOut revokes the held token and notifies subscribers.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return nil
	}
	if err := c.auth.SignOut(ctx, token); err != nil {
		return err
	}
	if c.setToken(token, "") {
		c.emit(Event{Kind: EventSignedOut})
	}
	return nil
}

// Revoked handles a revocation broadcast for token.
func (c *Client) Revoked(token string) {
	if token != "" && c.setToken(token, "") {
		c.emit(Event{Kind: EventSignedOut})
	}
}

// Watch delivers revocations from other instances until ctx is done.
func (c *Client) Watch(ctx context.Context) error {
	return c.auth.Sessions().Watch(ctx, c.Revoked)
}

func (c *Client) replace(sess *Session) {
	c.mu.Lock()
	c.token = sess.Token
	c.mu.Unlock()
	c.emit(Event{Kind: EventSignedIn, Session: sess})
}

// setToken swaps the token only if it still equals expected.
func (c *Client) setToken(expected, next string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != expected {
		return false
	}
	c.token = next
	return true
}

func (c *Client) emit(ev Event) {
	c.mu.Lock()
	listeners := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}
