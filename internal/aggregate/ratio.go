// Package aggregate derives read-only facts from rows already held in
// resource stores. Nothing here performs I/O except the legacy attachment
// migration.
package aggregate

import (
	"math"
	"sync"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/resource"
)

// Ratio returns done/total as an integer percentage in [0,100], rounded to
// the nearest integer. A zero total yields 0.
func Ratio(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}

// CompletionRatio counts the children of parentID and how many of them are
// done, and returns the percentage.
func CompletionRatio[C any](parentID int64, children []C, parentOf func(C) int64, isDone func(C) bool) int {
	var done, total int
	for _, child := range children {
		if parentOf(child) != parentID {
			continue
		}
		total++
		if isDone(child) {
			done++
		}
	}
	return Ratio(done, total)
}

// ProjectProgress is the completion ratio of one project's tasks.
func ProjectProgress(projectID int64, tasks []content.ProjectTask) int {
	return CompletionRatio(projectID, tasks, content.ProjectTask.Parent, content.ProjectTask.Done)
}

// Progress maps project ids to completion ratios.
type Progress map[int64]int

// ProgressOf computes the ratio of every project in projects.
func ProgressOf(projects []content.Project, tasks []content.ProjectTask) Progress {
	out := make(Progress, len(projects))
	for _, p := range projects {
		out[p.ID] = ProjectProgress(p.ID, tasks)
	}
	return out
}

// TrackCompletion recomputes project progress whenever either store's cache
// changes and hands the result to fn. It computes once immediately. The
// returned function stops tracking.
func TrackCompletion(projects *resource.Store[content.Project], tasks *resource.Store[content.ProjectTask], fn func(Progress)) (stop func()) {
	var mu sync.Mutex
	recompute := func() {
		mu.Lock()
		defer mu.Unlock()
		fn(ProgressOf(projects.Rows(), tasks.Rows()))
	}
	stopProjects := projects.Subscribe(func([]content.Project) { recompute() })
	stopTasks := tasks.Subscribe(func([]content.ProjectTask) { recompute() })
	recompute()
	return func() {
		stopProjects()
		stopTasks()
	}
}
