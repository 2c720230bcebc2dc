package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/platform/httpx"
	"github.com/nextfactory/nextfactory/internal/shared"
)

type contextKey struct{}

// ContextWithUser stores the authenticated user for the rest of the request.
func ContextWithUser(ctx context.Context, user *access.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user authenticated for this request.
func UserFromContext(ctx context.Context) (*access.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*access.User)
	return user, ok && user != nil
}

// Authenticator is the subset of Service the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*access.User, error)
}

// Middleware authenticates every request from HTTP Basic credentials.
type Middleware struct {
	Service Authenticator
	Logger  *slog.Logger
	Realm   string
}

// Require rejects requests without valid credentials and passes the user
// down through the request context.
func (m Middleware) Require(next http.Handler) http.Handler {
	realm := m.Realm
	if realm == "" {
		realm = "nextfactory"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			challenge(w, realm, "credentials required")
			return
		}
		user, err := m.Service.Authenticate(r.Context(), username, password)
		if err != nil {
			if errors.Is(err, shared.ErrInvalidCredentials) {
				challenge(w, realm, "invalid credentials")
				return
			}
			if m.Logger != nil {
				m.Logger.Error("authenticate", slog.String("username", username), slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

func challenge(w http.ResponseWriter, realm, detail string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q`, realm))
	httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
}
