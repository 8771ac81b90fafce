// Package cli implements the operator subcommands of the lumen binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/session"
)

// RoleGranter assigns roles to registered actors.
type RoleGranter interface {
	GrantRole(ctx context.Context, email string, role capability.Role) (session.Profile, error)
}

// GrantOptions defines the flags of the grant-role command.
type GrantOptions struct {
	Email      string
	Role       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// GrantResult is the JSON output of grant-role.
type GrantResult struct {
	ActorID string `json:"actor_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Label   string `json:"label"`
}

// GrantCommand assigns a role and prints the outcome. It returns 1 on usage
// errors, 2 when no profile matches and 3 on backend failures.
func GrantCommand(ctx context.Context, granter RoleGranter, opts GrantOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Email == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "grant-role: --email is required")
		return 1
	}
	role, ok := capability.ParseRole(opts.Role)
	if !ok {
		_, _ = fmt.Fprintf(opts.Stderr, "grant-role: unknown role %q\n", opts.Role)
		return 1
	}
	profile, err := granter.GrantRole(ctx, opts.Email, role)
	switch {
	case errors.Is(err, session.ErrProfileNotFound):
		_, _ = fmt.Fprintf(opts.Stderr, "grant-role: no profile registered for %s\n", opts.Email)
		return 2
	case err != nil:
		_, _ = fmt.Fprintf(opts.Stderr, "grant-role: %v\n", err)
		return 3
	}
	if opts.JSONOutput {
		res := GrantResult{ActorID: profile.ActorID, Email: opts.Email, Role: string(profile.Role), Label: profile.Role.Label()}
		if err := json.NewEncoder(opts.Stdout).Encode(res); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "grant-role: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "%s is now %s\n", opts.Email, profile.Role.Label())
	return 0
}
