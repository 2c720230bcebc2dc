// Package rbac guards HTTP routes by the capability flags of the user
// authenticated for the request.
package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/auth"
	"github.com/nextfactory/nextfactory/internal/platform/httpx"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current user holds at least one of the required
// capabilities. An empty list admits every authenticated user.
func (m Middleware) RequireAny(caps ...access.Capability) func(http.Handler) http.Handler {
	return m.require("rbac require any", caps, access.CapabilitySet.ContainsAny)
}

// RequireAll ensures the current user holds every required capability.
func (m Middleware) RequireAll(caps ...access.Capability) func(http.Handler) http.Handler {
	return m.require("rbac require all", caps, access.CapabilitySet.ContainsAll)
}

func (m Middleware) require(op string, caps []access.Capability, check func(access.CapabilitySet, []access.Capability) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "credentials required")
				return
			}
			if !user.IsActive {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "account inactive")
				return
			}
			granted, err := access.CapabilitiesFor(user)
			if err != nil {
				m.logError(r, op, user, err)
				httpx.RespondError(w, err)
				return
			}
			if !check(granted, caps) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing capability")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) logError(r *http.Request, op string, user *access.User, err error) {
	if m.Logger == nil {
		return
	}
	level := slog.LevelWarn
	if errors.Is(err, access.ErrConfiguration) {
		level = slog.LevelError
	}
	m.Logger.Log(r.Context(), level, op, slog.String("username", user.Username), slog.Any("error", err))
}
