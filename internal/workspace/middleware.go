package workspace

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/layout"
	"github.com/nextfactory/nextfactory/internal/platform/httpx"
	"github.com/nextfactory/nextfactory/internal/shared"
	"github.com/nextfactory/nextfactory/internal/telemetry"
)

// RequireSection admits the request only when the section is visible to
// the current user.
func (h *Handler) RequireSection(sectionID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := h.currentUser(w, r)
			if !ok {
				return
			}
			visible, err := h.composer.CanSee(user, sectionID)
			if err != nil {
				h.fail(w, r, "require section", err)
				return
			}
			if !visible {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "section not available: "+sectionID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireControl admits the request only when the section is visible and
// the control is enabled for the current user.
func (h *Handler) RequireControl(sectionID, controlID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := h.currentUser(w, r)
			if !ok {
				return
			}
			visible, err := h.composer.CanSee(user, sectionID)
			if err != nil {
				h.fail(w, r, "require control", err)
				return
			}
			if !visible {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "section not available: "+sectionID)
				return
			}
			enabled, err := h.composer.EnabledControls(user, sectionID)
			if err != nil {
				h.fail(w, r, "require control", err)
				return
			}
			if !slices.Contains(enabled, controlID) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "control not enabled: "+controlID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// transportError tags domain sentinels with the httpx status they map to.
// The original error stays in the chain for logging and detail.
func transportError(err error) error {
	switch {
	case errors.Is(err, layout.ErrUnknownSection):
		return fmt.Errorf("%w: %w", shared.ErrNotFound, err)
	case errors.Is(err, access.ErrUnknownCapability):
		return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	case errors.Is(err, telemetry.ErrAlreadyRunning):
		return fmt.Errorf("%w: %w", httpx.ErrConflict, err)
	default:
		return err
	}
}

func isClientError(err error) bool {
	return errors.Is(err, layout.ErrUnknownSection) ||
		errors.Is(err, access.ErrUnknownCapability) ||
		errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, telemetry.ErrAlreadyRunning)
}
