package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/auth"
	"github.com/nextfactory/nextfactory/internal/platform/httpx"
	"github.com/nextfactory/nextfactory/internal/rbac"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(access.CapEditUsers))
		r.Get("/", h.listUsers)
		r.Post("/{id}/activate", h.setActive(true))
		r.Post("/{id}/deactivate", h.setActive(false))
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.List(w, users)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
			return
		}
		actor, _ := auth.UserFromContext(r.Context())
		if err := h.service.SetActive(r.Context(), actor, id, active); err != nil {
			if errors.Is(err, ErrSelfDeactivation) {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
				return
			}
			h.logger.Error("set user active failed", slog.Int64("user_id", id), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		h.logger.Info("user active flag changed",
			slog.Int64("user_id", id),
			slog.Bool("active", active),
			slog.String("actor", actor.Username),
		)
		w.WriteHeader(http.StatusNoContent)
	}
}
