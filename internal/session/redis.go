package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RevocationChannel carries revoked tokens between instances.
const RevocationChannel = "session:revoked"

// Manager issues and tracks session tokens in Redis.
type Manager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

type sessionPayload struct {
	ActorID   string    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewManager constructs a Manager.
func NewManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		now:        time.Now,
	}
}

// Create issues a new session for actorID.
func (m *Manager) Create(ctx context.Context, actorID string) (*Session, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("session: token: %w", err)
	}
	now := m.now().UTC()
	data, err := json.Marshal(sessionPayload{ActorID: actorID, CreatedAt: now})
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	if err := m.client.Set(ctx, m.redisKey(token.String()), data, m.ttl).Err(); err != nil {
		return nil, fmt.Errorf("session: store: %w", err)
	}
	return &Session{Token: token.String(), ActorID: actorID, CreatedAt: now, ExpiresAt: now.Add(m.ttl)}, nil
}

// Lookup returns the session for token and extends its lifetime.
func (m *Manager) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	payload, err := m.client.GetEx(ctx, m.redisKey(token), m.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return &Session{
		Token:     token,
		ActorID:   stored.ActorID,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: m.now().UTC().Add(m.ttl),
	}, nil
}

// Revoke deletes token and tells other instances about it.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.client.Del(ctx, m.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: revoke: %w", err)
	}
	if err := m.client.Publish(ctx, RevocationChannel, token).Err(); err != nil {
		return fmt.Errorf("session: publish revocation: %w", err)
	}
	return nil
}

// Watch calls fn with every revoked token until ctx is done.
func (m *Manager) Watch(ctx context.Context, fn func(token string)) error {
	sub := m.client.Subscribe(ctx, RevocationChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("session: subscribe: %w", err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}

// WriteCookie sets the session cookie on w.
func (m *Manager) WriteCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  sess.ExpiresAt,
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Token extracts the session token from the cookie or a bearer header.
func (m *Manager) Token(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// TTL exposes the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// tokenAttr logs only a prefix of token.
func tokenAttr(token string) slog.Attr {
	if len(token) > 8 {
		token = token[:8]
	}
	return slog.String("token", token)
}

func (m *Manager) redisKey(token string) string {
	return "session:" + token
}
