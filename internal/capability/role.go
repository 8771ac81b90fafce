package capability

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role classifies an actor for authorization purposes.
type Role string

// Known roles, most privileged first. RoleNone stands for "no authenticated actor".
const (
	RoleNone               Role = ""
	RoleAdministrator      Role = "administrator"
	RoleCommunicationsLead Role = "communications_lead"
	RoleProjectLead        Role = "project_lead"
	RolePartner            Role = "partner"
	RoleMember             Role = "member"
)

// DefaultRole is assigned when an authenticated actor has no usable profile.
const DefaultRole = RoleMember

var knownRoles = []Role{
	RoleAdministrator,
	RoleCommunicationsLead,
	RoleProjectLead,
	RolePartner,
	RoleMember,
}

// Roles lists every assignable role.
func Roles() []Role {
	out := make([]Role, len(knownRoles))
	copy(out, knownRoles)
	return out
}

// ParseRole maps free-form input onto a known role. Hyphens, spaces and case
// differences are tolerated ("Project-Lead" parses as RoleProjectLead).
func ParseRole(raw string) (Role, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, role := range knownRoles {
		if string(role) == normalized {
			return role, true
		}
	}
	return RoleNone, false
}

// Valid reports whether r is spelled exactly as one of the assignable roles.
// Use ParseRole for free-form input.
func (r Role) Valid() bool {
	for _, role := range knownRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Label renders the role for display.
func (r Role) Label() string {
	if r == RoleNone {
		return "Guest"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(r), "_", " "))
}
