package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/platform/httpx"
	"github.com/lumen-foundation/lumen/internal/session"
)

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"omitempty,max=120"`
	Role        string `json:"role" validate:"omitempty,max=40"`
}

// meResponse describes the caller as the resolver sees it.
type meResponse struct {
	State       string   `json:"state"`
	ActorID     string   `json:"actor_id,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Role        string   `json:"role"`
	RoleLabel   string   `json:"role_label"`
	Scopes      []string `json:"scopes"`
	Error       string   `json:"error,omitempty"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role := capability.RoleNone
	if req.Role != "" {
		parsed, ok := capability.ParseRole(req.Role)
		if !ok {
			httpx.RespondError(w, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, req.Role))
			return
		}
		role = parsed
	}
	client := session.ClientFromContext(r.Context())
	sess, err := client.SignUp(r.Context(),
		session.Credentials{Email: req.Email, Password: req.Password},
		session.SignUpDetails{DisplayName: req.DisplayName, Role: role},
	)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.auth.Sessions().WriteCookie(w, sess)
	h.writeMe(w, r, http.StatusCreated)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	client := session.ClientFromContext(r.Context())
	sess, err := client.SignIn(r.Context(), session.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.auth.Sessions().WriteCookie(w, sess)
	h.writeMe(w, r, http.StatusOK)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	client := session.ClientFromContext(r.Context())
	if err := client.SignOut(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.auth.Sessions().ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	h.writeMe(w, r, http.StatusOK)
}

func (h *Handler) writeMe(w http.ResponseWriter, r *http.Request, status int) {
	resolver := session.ResolverFromContext(r.Context())
	snap := resolver.Snapshot()
	resp := meResponse{
		State:       snap.State.String(),
		ActorID:     snap.ActorID,
		DisplayName: snap.DisplayName,
		Role:        string(snap.Role),
		RoleLabel:   snap.Role.Label(),
		Scopes:      resolver.Matrix().Scopes(snap.Role),
	}
	if snap.Err != nil {
		resp.Error = "Your profile could not be loaded; limited access applies."
	}
	if resp.Scopes == nil {
		resp.Scopes = []string{}
	}
	httpx.JSON(w, status, resp)
}

// handleCapabilities renders the whole table, one entry per role.
func (h *Handler) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string, len(capability.Roles()))
	for _, role := range capability.Roles() {
		scopes := h.matrix.Scopes(role)
		if scopes == nil {
			scopes = []string{}
		}
		out[string(role)] = scopes
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) decodeValid(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	if err := h.validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s", httpx.ErrValidation, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	return nil
}
