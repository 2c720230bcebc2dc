package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseConfigAppliesOptions(t *testing.T) {
	cfg, err := ParseConfig("postgres://nf:nf@localhost:5432/nextfactory?sslmode=disable", PoolOptions{
		MaxConns:        8,
		MinConns:        2,
		MaxConnLifetime: 30 * time.Minute,
		ApplicationName: "nextfactory-test",
	})
	require.NoError(t, err)
	require.EqualValues(t, 8, cfg.MaxConns)
	require.EqualValues(t, 2, cfg.MinConns)
	require.Equal(t, 30*time.Minute, cfg.MaxConnLifetime)
	require.Equal(t, "nextfactory-test", cfg.ConnConfig.RuntimeParams["application_name"])
	require.Equal(t, "nextfactory", cfg.ConnConfig.Database)
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	base, err := ParseConfig("postgres://localhost/nextfactory", PoolOptions{})
	require.NoError(t, err)

	cfg, err := ParseConfig("postgres://localhost/nextfactory", PoolOptions{MinConns: base.MaxConns + 1})
	require.NoError(t, err)
	require.Equal(t, base.MaxConns, cfg.MaxConns)
	require.Equal(t, base.MinConns, cfg.MinConns)
}

func TestParseConfigRejectsGarbage(t *testing.T) {
	_, err := ParseConfig("postgres://%zz", PoolOptions{})
	require.ErrorContains(t, err, "platform/db: parse config")
}
