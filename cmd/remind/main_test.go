package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "serve", "validate", "sync-cron"} {
		require.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestValidateReportsMissingRecipe(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "daemon.json")
	missing := filepath.Join(dir, "missing.yaml")
	body := `{"workflows": ["` + missing + `"]}`
	require.NoError(t, os.WriteFile(configFile, []byte(body), 0o644))
	require.Error(t, validate(configFile))
}

func TestValidateAcceptsWellFormedRecipe(t *testing.T) {
	dir := t.TempDir()
	recipePath := filepath.Join(dir, "digest.yaml")
	require.NoError(t, os.WriteFile(recipePath, []byte("run_every: 1h\nsteps: []\n"), 0o644))
	configFile := filepath.Join(dir, "daemon.json")
	body := `{"workflows": ["` + recipePath + `"]}`
	require.NoError(t, os.WriteFile(configFile, []byte(body), 0o644))
	require.NoError(t, validate(configFile))
}
