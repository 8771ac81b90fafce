package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lumen-foundation/lumen/internal/aggregate"
	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/platform/httpx"
	"github.com/lumen-foundation/lumen/internal/remote"
	"github.com/lumen-foundation/lumen/internal/resource"
	"github.com/lumen-foundation/lumen/internal/session"
	"github.com/lumen-foundation/lumen/internal/wizard"
)

type progressResponse struct {
	ProjectID int64 `json:"project_id"`
	Tasks     int   `json:"tasks"`
	Done      int   `json:"done"`
	Percent   int   `json:"percent"`
}

type attachmentsResponse struct {
	ProjectID int64                     `json:"project_id"`
	Documents []content.ProjectDocument `json:"documents"`
	// Legacy lists references still held in the project's old column.
	Legacy []string `json:"legacy"`
}

type wizardRequest struct {
	Project   content.Project           `json:"project"`
	Documents []content.ProjectDocument `json:"documents"`
	Tasks     []content.ProjectTask     `json:"tasks"`
}

type wizardResponse struct {
	Project   content.Project           `json:"project"`
	Documents []content.ProjectDocument `json:"documents"`
	Tasks     []content.ProjectTask     `json:"tasks"`
	Failures  []string                  `json:"failures,omitempty"`
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"omitempty,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

type dashboardResponse struct {
	Counts          map[string]int64 `json:"counts"`
	Partial         bool             `json:"partial,omitempty"`
	Progress        map[int64]int    `json:"progress"`
	AverageProgress int              `json:"average_progress"`
}

func (h *Handler) handleProjectProgress(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := findRow(r, h.catalog.Projects, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	tasks, err := h.catalog.ProjectTasks.Where(r.Context(), remote.Filter{Column: "project_id", Value: id})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := progressResponse{ProjectID: id, Tasks: len(tasks), Percent: aggregate.ProjectProgress(id, tasks)}
	for _, t := range tasks {
		if t.Done() {
			resp.Done++
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleProjectAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	project, err := findRow(r, h.catalog.Projects, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	docs, err := h.catalog.ProjectDocuments.Where(r.Context(), remote.Filter{Column: "project_id", Value: id})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if docs == nil {
		docs = []content.ProjectDocument{}
	}
	httpx.JSON(w, http.StatusOK, attachmentsResponse{
		ProjectID: id,
		Documents: docs,
		Legacy:    aggregate.DecodeAttachments(project.Documents),
	})
}

// handleProjectWizard walks the creation steps in one request: the project
// is saved on entering the tasks step, then its documents and tasks are
// attached. Child failures are reported without undoing the project.
func (h *Handler) handleProjectWizard(w http.ResponseWriter, r *http.Request) {
	var req wizardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	resolver := session.ResolverFromContext(r.Context())
	if len(req.Documents) > 0 && !resolver.CanCreate(capability.ResourceProjectDocuments) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "You do not have permission to create project_documents.")
		return
	}
	if len(req.Tasks) > 0 && !resolver.CanCreate(capability.ResourceProjectTasks) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "You do not have permission to create project_tasks.")
		return
	}

	req.Project.ID = 0
	flow := wizard.NewProject(h.catalog.Projects, req.Project)
	for flow.Step() != wizard.StepTasks {
		if err := flow.Next(r.Context()); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	parentID := flow.ParentID()
	resp := wizardResponse{Documents: []content.ProjectDocument{}, Tasks: []content.ProjectTask{}}
	if project, ok := h.catalog.Projects.Find(parentID); ok {
		resp.Project = project
	}

	for _, doc := range req.Documents {
		doc.ID = 0
		doc.ProjectID = &parentID
		created, err := h.catalog.ProjectDocuments.Create(r.Context(), doc)
		if err != nil {
			resp.Failures = append(resp.Failures, childFailure("document", err))
			continue
		}
		resp.Documents = append(resp.Documents, created)
	}
	for i, task := range req.Tasks {
		task.ID = 0
		task.ProjectID = &parentID
		if task.Position == nil {
			pos := i
			task.Position = &pos
		}
		created, err := h.catalog.ProjectTasks.Create(r.Context(), task)
		if err != nil {
			resp.Failures = append(resp.Failures, childFailure("task", err))
			continue
		}
		resp.Tasks = append(resp.Tasks, created)
	}
	if len(resp.Failures) > 0 {
		h.logger.Warn("project wizard finished with failures",
			slog.Int64("project_id", parentID),
			slog.Int("failures", len(resp.Failures)),
		)
	}
	httpx.JSON(w, http.StatusCreated, resp)
}

// handleContactSubmit accepts a message from an anonymous visitor.
func (h *Handler) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	handled := false
	msg := content.ContactMessage{
		Name:    &req.Name,
		Email:   &req.Email,
		Message: &req.Message,
		Handled: &handled,
	}
	if req.Subject != "" {
		msg.Subject = &req.Subject
	}
	if _, err := h.catalog.ContactMessages.Create(r.Context(), msg); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.catalog.Registry.CountAll(r.Context())
	resp := dashboardResponse{Counts: counts, Partial: err != nil}
	if err != nil {
		h.logger.Warn("dashboard counts incomplete", slog.Any("error", err))
	}

	projects, perr := loaded(r, h.catalog.Projects)
	tasks, terr := loaded(r, h.catalog.ProjectTasks)
	if perr != nil || terr != nil {
		resp.Partial = true
	}
	progress := aggregate.ProgressOf(projects, tasks)
	resp.Progress = progress
	if len(progress) > 0 {
		sum := 0
		for _, pct := range progress {
			sum += pct
		}
		resp.AverageProgress = sum / len(progress)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// findRow looks id up in the cache, loading the collection once on a miss.
func findRow[T resource.Record](r *http.Request, store *resource.Store[T], id int64) (T, error) {
	if row, ok := store.Find(id); ok {
		return row, nil
	}
	if _, err := store.List(r.Context()); err != nil {
		var zero T
		return zero, err
	}
	row, ok := store.Find(id)
	if !ok {
		return row, fmt.Errorf("%w: %s %d", httpx.ErrNotFound, store.Name(), id)
	}
	return row, nil
}

// loaded returns the cached rows, loading them when the store has never been
// listed.
func loaded[T resource.Record](r *http.Request, store *resource.Store[T]) ([]T, error) {
	if store.Loaded() {
		return store.Rows(), nil
	}
	return store.List(r.Context())
}

func childFailure(kind string, err error) string {
	var serr *resource.Error
	if errors.As(err, &serr) {
		return kind + ": " + serr.Message()
	}
	return kind + ": " + err.Error()
}
