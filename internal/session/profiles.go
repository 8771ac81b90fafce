package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/remote"
	"github.com/lumen-foundation/lumen/internal/resource"
)

// StoreProfiles reads profiles through the profiles store.
type StoreProfiles struct {
	store  *resource.Store[content.Profile]
	logger *slog.Logger
}

// NewStoreProfiles wraps store as a ProfileSource.
func NewStoreProfiles(store *resource.Store[content.Profile], logger *slog.Logger) *StoreProfiles {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreProfiles{store: store, logger: logger}
}

// Profile fetches the profile of actorID. A stored role that is not a known
// role resolves to the default role.
func (p *StoreProfiles) Profile(ctx context.Context, actorID string) (Profile, error) {
	rows, err := p.store.Where(ctx, remote.Filter{Column: "actor_id", Value: actorID})
	if err != nil {
		if resource.KindOf(err) == resource.KindNotFound {
			return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, actorID)
		}
		return Profile{}, err
	}
	if len(rows) == 0 {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, actorID)
	}
	return p.toProfile(actorID, rows[0]), nil
}

// Create stores a profile row for actorID.
func (p *StoreProfiles) Create(ctx context.Context, profile Profile, email string) error {
	actor, role := profile.ActorID, string(profile.Role)
	row := content.Profile{ActorID: &actor, Role: &role}
	if profile.DisplayName != "" {
		name := profile.DisplayName
		row.DisplayName = &name
	}
	if email != "" {
		row.Email = &email
	}
	_, err := p.store.Create(ctx, row)
	return err
}

// GrantRole assigns role to the profile registered under email. Emails are
// compared after trimming and lower-casing.
func (p *StoreProfiles) GrantRole(ctx context.Context, email string, role capability.Role) (Profile, error) {
	parsed, ok := capability.ParseRole(string(role))
	if !ok {
		return Profile{}, fmt.Errorf("session: grant role: unknown role %q", role)
	}
	role = parsed
	email = normalizeEmail(email)
	rows, err := p.store.Where(ctx, remote.Filter{Column: "email", Value: email})
	if err != nil {
		return Profile{}, err
	}
	if len(rows) == 0 {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, email)
	}
	value := string(role)
	row, err := p.store.Update(ctx, rows[0].ID, content.Profile{Role: &value})
	if err != nil {
		return Profile{}, err
	}
	actor := ""
	if row.ActorID != nil {
		actor = *row.ActorID
	}
	p.logger.Info("role granted", slog.String("actor_id", actor), slog.String("role", value))
	return p.toProfile(actor, row), nil
}

func (p *StoreProfiles) toProfile(actorID string, row content.Profile) Profile {
	out := Profile{ActorID: actorID, Role: capability.DefaultRole}
	if row.DisplayName != nil {
		out.DisplayName = *row.DisplayName
	}
	if row.Role == nil || *row.Role == "" {
		return out
	}
	role, ok := capability.ParseRole(*row.Role)
	if !ok {
		p.logger.Warn("profile carries unknown role, using default",
			slog.String("actor_id", actorID),
			slog.String("role", *row.Role),
			slog.String("default", string(capability.DefaultRole)),
		)
		return out
	}
	out.Role = role
	return out
}
