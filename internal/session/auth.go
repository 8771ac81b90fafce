package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/remote"
	"github.com/lumen-foundation/lumen/internal/resource"
)

// AccountsTable names the credential collection.
const AccountsTable = "accounts"

// Account is a stored credential.
type Account struct {
	ID           int64              `json:"id"`
	ActorID      *string            `json:"actor_id,omitempty"`
	Email        *string            `json:"email,omitempty"`
	PasswordHash *string            `json:"password_hash,omitempty"`
	CreatedAt    *content.Timestamp `json:"created_at,omitempty"`
}

func (a Account) RowID() int64 { return a.ID }

// SelfServiceRoles may be requested at sign-up. Other roles are granted by
// an administrator editing the profile.
var SelfServiceRoles = []capability.Role{capability.RolePartner, capability.RoleMember}

// Service authenticates actors against the accounts collection and issues
// sessions through the Manager.
type Service struct {
	accounts *resource.Store[Account]
	profiles *StoreProfiles
	sessions *Manager
	validate *validator.Validate
	logger   *slog.Logger
	cost     int
}

// NewService wires a Service.
func NewService(accounts *resource.Store[Account], profiles *StoreProfiles, sessions *Manager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		profiles: profiles,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

// SetPasswordCost overrides the bcrypt cost used for new hashes. Values
// outside bcrypt's range are ignored.
func (s *Service) SetPasswordCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.cost = cost
	}
}

// Sessions exposes the token manager.
func (s *Service) Sessions() *Manager { return s.sessions }

// Profiles exposes the profile source.
func (s *Service) Profiles() *StoreProfiles { return s.profiles }

// SignIn verifies creds and issues a session.
func (s *Service) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := s.validate.Struct(creds); err != nil {
		return nil, ErrInvalidCredentials
	}
	account, err := s.accountByEmail(ctx, creds.Email)
	if err != nil {
		return nil, err
	}
	if account.PasswordHash == nil || account.ActorID == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	sess, err := s.sessions.Create(ctx, *account.ActorID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("signed in", slog.String("actor_id", sess.ActorID), tokenAttr(sess.Token))
	return sess, nil
}

// SignUp registers a new account with a profile and issues a session. A
// profile that cannot be written does not fail sign-up; the actor then
// resolves to the default role.
func (s *Service) SignUp(ctx context.Context, creds Credentials, details SignUpDetails) (*Session, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := s.validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("session: sign up: %w", err)
	}
	if err := s.validate.Struct(details); err != nil {
		return nil, fmt.Errorf("session: sign up: %w", err)
	}
	role, err := selfServiceRole(details.Role)
	if err != nil {
		return nil, err
	}
	switch _, err := s.accountByEmail(ctx, creds.Email); {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrInvalidCredentials):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("session: hash password: %w", err)
	}
	actorID := uuid.NewString()
	hashed := string(hash)
	email := creds.Email
	if _, err := s.accounts.Create(ctx, Account{ActorID: &actorID, Email: &email, PasswordHash: &hashed}); err != nil {
		if resource.KindOf(err) == resource.KindUniqueConflict {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if err := s.profiles.Create(ctx, Profile{ActorID: actorID, Role: role, DisplayName: details.DisplayName}, email); err != nil {
		s.logger.Warn("profile creation failed at sign-up", slog.String("actor_id", actorID), slog.Any("error", err))
	}
	return s.sessions.Create(ctx, actorID)
}

// SignOut revokes token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return err
	}
	s.logger.Info("signed out", tokenAttr(token))
	return nil
}

func (s *Service) accountByEmail(ctx context.Context, email string) (Account, error) {
	rows, err := s.accounts.Where(ctx, remote.Filter{Column: "email", Value: email})
	if err != nil {
		return Account{}, err
	}
	if len(rows) == 0 {
		return Account{}, ErrInvalidCredentials
	}
	return rows[0], nil
}

func selfServiceRole(requested capability.Role) (capability.Role, error) {
	if requested == capability.RoleNone {
		return capability.DefaultRole, nil
	}
	role, ok := capability.ParseRole(string(requested))
	if !ok {
		return capability.RoleNone, ErrRoleNotAllowed
	}
	for _, allowed := range SelfServiceRoles {
		if role == allowed {
			return role, nil
		}
	}
	return capability.RoleNone, ErrRoleNotAllowed
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
