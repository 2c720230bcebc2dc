package roles

import (
	"context"

	"github.com/nextfactory/nextfactory/internal/access"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// Matrix returns the capability grants of the stored roles.
func (s *Service) Matrix(ctx context.Context) ([]Grant, error) {
	stored, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	plain := make([]access.Role, len(stored))
	for i, r := range stored {
		plain[i] = r.Role
	}
	return Matrix(plain), nil
}
