package users

import (
	"context"
	"errors"

	"github.com/nextfactory/nextfactory/internal/access"
)

// ErrSelfDeactivation blocks an administrator from locking themselves out.
var ErrSelfDeactivation = errors.New("users: cannot deactivate own account")

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]access.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]access.User, error) {
	return s.repo.ListUsers(ctx)
}

// SetActive activates or deactivates the account id on behalf of actor.
// Deactivated accounts fail authentication from the next request on.
func (s *Service) SetActive(ctx context.Context, actor *access.User, id int64, active bool) error {
	if !active && actor != nil && actor.ID == id {
		return ErrSelfDeactivation
	}
	return s.repo.SetActive(ctx, id, active)
}
