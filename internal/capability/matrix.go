package capability

import (
	"sort"
)

// Grant holds the permitted mutations for one (resource, role) pair.
type Grant struct {
	Create bool
	Edit   bool
	Delete bool
}

// Allows reports whether the grant covers the action.
func (g Grant) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return g.Create
	case ActionEdit:
		return g.Edit
	case ActionDelete:
		return g.Delete
	default:
		return false
	}
}

// Matrix is the single source of truth for who may mutate what. A pair that
// is absent from the table grants nothing.
type Matrix struct {
	grants map[string]map[Role]Grant
}

// NewMatrix copies the table so later edits to grants do not leak in.
func NewMatrix(grants map[string]map[Role]Grant) *Matrix {
	table := make(map[string]map[Role]Grant, len(grants))
	for resource, byRole := range grants {
		inner := make(map[Role]Grant, len(byRole))
		for role, grant := range byRole {
			if role == RoleNone {
				continue
			}
			inner[role] = grant
		}
		table[resource] = inner
	}
	return &Matrix{grants: table}
}

// Permit answers whether role may perform action on resource.
func (m *Matrix) Permit(role Role, resource string, action Action) bool {
	if role == RoleNone {
		return false
	}
	return m.Grant(role, resource).Allows(action)
}

// Grant returns the stored grant, or the zero Grant when none exists.
func (m *Matrix) Grant(role Role, resource string) Grant {
	if m == nil || role == RoleNone {
		return Grant{}
	}
	byRole, ok := m.grants[resource]
	if !ok {
		return Grant{}
	}
	return byRole[role]
}

// Resources lists the resource names known to the table, sorted.
func (m *Matrix) Resources() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.grants))
	for resource := range m.grants {
		out = append(out, resource)
	}
	sort.Strings(out)
	return out
}

// Scopes lists every permission string granted to role, sorted.
func (m *Matrix) Scopes(role Role) []string {
	var scopes []string
	for _, resource := range m.Resources() {
		for _, action := range Actions() {
			if m.Permit(role, resource, action) {
				scopes = append(scopes, Scope(resource, action))
			}
		}
	}
	return scopes
}
