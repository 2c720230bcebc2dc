package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextfactory/nextfactory/internal/access"
	_ "github.com/nextfactory/nextfactory/testing"
)

func TestDemoAccountsCoverEveryRole(t *testing.T) {
	accounts := demoAccounts()
	require.Len(t, accounts, len(access.RoleNames()))

	seen := map[access.RoleName]bool{}
	for _, a := range accounts {
		require.Equal(t, string(a.Role), a.Username)
		require.Equal(t, a.Username+"123", a.Password)
		require.NotEmpty(t, a.FirstName)
		_, ok := access.DefaultRole(a.Role)
		require.True(t, ok, a.Role)
		seen[a.Role] = true
	}
	require.Len(t, seen, len(access.RoleNames()))
}
