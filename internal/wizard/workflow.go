// Package wizard implements the three-step creation workflow for a parent
// row and its children: info, then documents, then tasks. Child rows need the
// parent's server-assigned id, so the tasks step can only be entered once the
// parent has been persisted.
package wizard

import (
	"context"
	"errors"
	"fmt"
)

// Step is a workflow position.
type Step int

const (
	StepInfo Step = iota
	StepDocuments
	StepTasks
)

func (s Step) String() string {
	switch s {
	case StepInfo:
		return "info"
	case StepDocuments:
		return "documents"
	case StepTasks:
		return "tasks"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ParseStep maps a step name onto a Step.
func ParseStep(name string) (Step, bool) {
	for s := StepInfo; s <= StepTasks; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

var (
	// ErrLastStep is returned by Next on the final step.
	ErrLastStep = errors.New("wizard: already on the last step")
	// ErrFirstStep is returned by Back on the first step.
	ErrFirstStep = errors.New("wizard: already on the first step")
	// ErrNotVisited is returned by GoTo for a step not reached yet.
	ErrNotVisited = errors.New("wizard: step not visited yet")
	// ErrNoParent guards the tasks step against a parent without an id.
	ErrNoParent = errors.New("wizard: parent has not been saved")
)

// Persister saves the parent draft and returns its identifier.
type Persister[P any] func(ctx context.Context, draft P) (int64, error)

// Workflow is the state of one creation run. It is not safe for concurrent
// use; each run belongs to a single caller.
type Workflow[P any] struct {
	step     Step
	visited  [StepTasks + 1]bool
	draft    P
	parentID int64
	persist  Persister[P]
}

// New starts a workflow on the info step.
func New[P any](draft P, persist Persister[P]) *Workflow[P] {
	w := &Workflow[P]{draft: draft, persist: persist}
	w.visited[StepInfo] = true
	return w
}

// Resume starts a workflow for a parent that already exists.
func Resume[P any](draft P, parentID int64, persist Persister[P]) *Workflow[P] {
	w := New(draft, persist)
	w.parentID = parentID
	return w
}

// Step returns the current step.
func (w *Workflow[P]) Step() Step { return w.step }

// ParentID returns the persisted parent id, or 0.
func (w *Workflow[P]) ParentID() int64 { return w.parentID }

// Draft returns the parent draft.
func (w *Workflow[P]) Draft() P { return w.draft }

// SetDraft replaces the parent draft.
func (w *Workflow[P]) SetDraft(draft P) { w.draft = draft }

// Visited reports whether s has been reached.
func (w *Workflow[P]) Visited(s Step) bool {
	return s >= StepInfo && s <= StepTasks && w.visited[s]
}

// Next advances one step. Leaving documents for tasks persists the parent
// first when it has no id; the step changes only if that succeeds.
func (w *Workflow[P]) Next(ctx context.Context) error {
	if w.step == StepTasks {
		return ErrLastStep
	}
	target := w.step + 1
	if target == StepTasks && w.parentID == 0 {
		if w.persist == nil {
			return ErrNoParent
		}
		id, err := w.persist(ctx, w.draft)
		if err != nil {
			return fmt.Errorf("wizard: save parent: %w", err)
		}
		if id == 0 {
			return ErrNoParent
		}
		w.parentID = id
	}
	w.step = target
	w.visited[target] = true
	return nil
}

// Back moves one step backwards.
func (w *Workflow[P]) Back() error {
	if w.step == StepInfo {
		return ErrFirstStep
	}
	w.step--
	return nil
}

// GoTo jumps to an already visited step.
func (w *Workflow[P]) GoTo(s Step) error {
	if !w.Visited(s) {
		return ErrNotVisited
	}
	if s == StepTasks && w.parentID == 0 {
		return ErrNoParent
	}
	w.step = s
	return nil
}
