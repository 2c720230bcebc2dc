package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/platform/httpx"
	"github.com/nextfactory/nextfactory/internal/rbac"
)

// Handler serves the role catalogue.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(access.CapEditUsers))
		r.Get("/", h.listRoles)
		r.Get("/matrix", h.matrix)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.List(w, roles)
}

func (h *Handler) matrix(w http.ResponseWriter, r *http.Request) {
	grants, err := h.service.Matrix(r.Context())
	if err != nil {
		h.logger.Error("role matrix failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.List(w, grants)
}
