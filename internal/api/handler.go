// Package api exposes the content collections, authentication and derived
// project facts over JSON. Every mutating route is gated on the caller's
// resolved role before the store is touched.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/platform/httpx"
	"github.com/lumen-foundation/lumen/internal/session"
)

// Handler serves the JSON API.
type Handler struct {
	catalog  *content.Catalog
	auth     *session.Service
	matrix   *capability.Matrix
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler wires the API handler.
func NewHandler(catalog *content.Catalog, auth *session.Service, matrix *capability.Matrix, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if matrix == nil {
		matrix = capability.Default()
	}
	return &Handler{
		catalog:  catalog,
		auth:     auth,
		matrix:   matrix,
		logger:   logger,
		validate: validator.New(),
	}
}

// MountRoutes registers the API under r. The session middleware must run
// first; see Session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", h.handleSignUp)
		r.Post("/sign-in", h.handleSignIn)
		r.Post("/sign-out", h.handleSignOut)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.handleMe)
		r.Get("/capabilities", h.handleCapabilities)
		r.With(h.requireSignedIn).Get("/dashboard", h.handleDashboard)

		c := h.catalog
		r.Route("/projects", func(r chi.Router) {
			mountCollection(r, h, c.Projects, false)
			r.Get("/{id}/progress", h.handleProjectProgress)
			r.Get("/{id}/attachments", h.handleProjectAttachments)
			r.With(
				h.require(capability.ResourceProjects, capability.ActionCreate),
			).Post("/wizard", h.handleProjectWizard)
		})
		r.Route("/project_tasks", func(r chi.Router) { mountCollection(r, h, c.ProjectTasks, false) })
		r.Route("/project_documents", func(r chi.Router) { mountCollection(r, h, c.ProjectDocuments, false) })
		r.Route("/news", func(r chi.Router) { mountCollection(r, h, c.News, false) })
		r.Route("/events", func(r chi.Router) { mountCollection(r, h, c.Events, false) })
		r.Route("/team_members", func(r chi.Router) { mountCollection(r, h, c.TeamMembers, false) })
		r.Route("/partners", func(r chi.Router) { mountCollection(r, h, c.Partners, false) })
		r.Route("/testimonials", func(r chi.Router) { mountCollection(r, h, c.Testimonials, false) })
		r.Route("/gallery", func(r chi.Router) { mountCollection(r, h, c.Gallery, false) })
		r.Route("/publications", func(r chi.Router) { mountCollection(r, h, c.Publications, false) })
		r.Route("/faqs", func(r chi.Router) { mountCollection(r, h, c.FAQs, false) })
		r.Route("/contact_messages", func(r chi.Router) {
			r.Post("/submit", h.handleContactSubmit)
			mountCollection(r, h, c.ContactMessages, true)
		})
		r.Route("/profiles", func(r chi.Router) { mountCollection(r, h, c.Profiles, true) })
	})
}

// Require gates a route on the caller's role permitting action on resource.
// Anonymous callers get 401, signed-in callers without the grant 403.
func (h *Handler) Require(resource string, action capability.Action) func(http.Handler) http.Handler {
	return h.require(resource, action)
}

func (h *Handler) require(resource string, action capability.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolver := session.ResolverFromContext(r.Context())
			if resolver == nil || resolver.State() != session.StateAuthenticated {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Sign in to continue.")
				return
			}
			if !resolver.Can(resource, action) {
				h.logger.Info("capability denied",
					slog.String("actor_id", resolver.ActorID()),
					slog.String("role", string(resolver.Role())),
					slog.String("scope", capability.Scope(resource, action)),
				)
				httpx.Problem(w, http.StatusForbidden, "Forbidden",
					fmt.Sprintf("You do not have permission to %s %s.", action, resource))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) requireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolver := session.ResolverFromContext(r.Context())
		if resolver == nil || resolver.State() != session.StateAuthenticated {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Sign in to continue.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Session resolves the caller's session and role for every request and
// stores the resolver and provider in the request context. Lookup failures
// leave the caller signed out.
func (h *Handler) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		client := session.NewClient(h.auth, h.auth.Sessions().Token(r))
		resolver := session.NewResolver(client, h.auth.Profiles(), h.matrix, session.WithResolverLogger(h.logger))
		if err := resolver.Start(ctx); err != nil {
			h.logger.Warn("session lookup failed", slog.Any("error", err))
		}
		defer resolver.Stop()
		ctx = session.ContextWithClient(ctx, client)
		ctx = session.ContextWithResolver(ctx, resolver)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
