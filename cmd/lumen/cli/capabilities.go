package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lumen-foundation/lumen/internal/capability"
)

// CapabilitiesOptions defines the flags of the capabilities command.
type CapabilitiesOptions struct {
	// Path points at a capability table; empty uses the built-in one.
	Path       string
	Role       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CapabilitiesCommand loads a capability table and prints the scopes each
// role receives. Operators run it to check a table before deploying it.
func CapabilitiesCommand(opts CapabilitiesOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	matrix := capability.Default()
	if opts.Path != "" {
		loaded, err := capability.LoadFile(opts.Path)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "capabilities: %v\n", err)
			return 1
		}
		matrix = loaded
	}
	roles := capability.Roles()
	if opts.Role != "" {
		role, ok := capability.ParseRole(opts.Role)
		if !ok {
			_, _ = fmt.Fprintf(opts.Stderr, "capabilities: unknown role %q\n", opts.Role)
			return 1
		}
		roles = []capability.Role{role}
	}

	table := make(map[string][]string, len(roles))
	for _, role := range roles {
		scopes := matrix.Scopes(role)
		if scopes == nil {
			scopes = []string{}
		}
		table[string(role)] = scopes
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(table); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "capabilities: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	for _, role := range roles {
		scopes := table[string(role)]
		if len(scopes) == 0 {
			_, _ = fmt.Fprintf(opts.Stdout, "%s: (read only)\n", role.Label())
			continue
		}
		_, _ = fmt.Fprintf(opts.Stdout, "%s: %s\n", role.Label(), strings.Join(scopes, ", "))
	}
	return 0
}
