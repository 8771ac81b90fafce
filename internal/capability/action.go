package capability

import "strings"

// Action is a mutation gated by the matrix.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Actions lists every gated action.
func Actions() []Action {
	return []Action{ActionCreate, ActionEdit, ActionDelete}
}

// ParseAction maps input onto a known action.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionCreate:
		return ActionCreate, true
	case ActionEdit, "update":
		return ActionEdit, true
	case ActionDelete:
		return ActionDelete, true
	default:
		return "", false
	}
}
