package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgsVersion(t *testing.T) {
	cfg, showVersion, err := ParseArgs([]string{"--version"})
	require.NoError(t, err)
	require.True(t, showVersion)
	require.Nil(t, cfg)
}

func TestParseArgsProxy(t *testing.T) {
	cfg, showVersion, err := ParseArgs([]string{"proxy", "openapi.yaml", "http://localhost:8080/api/v1"})
	require.NoError(t, err)
	require.False(t, showVersion)
	require.Equal(t, "openapi.yaml", cfg.SpecPath)
	require.Equal(t, "/api/v1", cfg.UpstreamBase.Path)
	require.Equal(t, "0.0.0.0:3000", cfg.ListenAddr)
}

func TestParseArgsMissingSubcommand(t *testing.T) {
	_, _, err := ParseArgs([]string{"openapi.yaml", "http://localhost:8080"})
	require.Error(t, err)
}

func TestParseArgsTooFewArgs(t *testing.T) {
	_, _, err := ParseArgs([]string{"proxy", "openapi.yaml"})
	require.Error(t, err)
}
