package roles_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/roles"
)

type staticRepo []roles.Role

func (s staticRepo) ListRoles(ctx context.Context) ([]roles.Role, error) {
	return s, nil
}

func TestMatrixFollowsSeedRoles(t *testing.T) {
	var stored staticRepo
	for i, r := range access.DefaultRoles() {
		stored = append(stored, roles.Role{ID: int64(i + 1), Role: r})
	}
	grants, err := roles.NewService(stored).Matrix(context.Background())
	require.NoError(t, err)
	require.Len(t, grants, len(access.AllCapabilities()))

	byCap := make(map[access.Capability][]access.RoleName, len(grants))
	for _, g := range grants {
		byCap[g.Capability] = g.Roles
	}
	require.Equal(t, []access.RoleName{access.RoleAdmin}, byCap[access.CapEditUsers])
	require.Equal(t, access.RoleNames(), byCap[access.CapViewReports])
	require.Equal(t, []access.RoleName{access.RoleAdmin, access.RoleManager, access.RoleAnalyst}, byCap[access.CapAccessPlanning])
	require.Equal(t, []access.RoleName{access.RoleAdmin, access.RoleManager, access.RoleOperator, access.RoleAnalyst}, byCap[access.CapAccessManufacturing])
}

func TestMatrixWithoutRoles(t *testing.T) {
	grants := roles.Matrix(nil)
	for _, g := range grants {
		require.NotNil(t, g.Roles)
		require.Empty(t, g.Roles)
	}
}
