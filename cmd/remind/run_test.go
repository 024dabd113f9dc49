package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/remindctl/remind/model"
)

func TestRunOnceResolvesRecipeViaDiscoveryWhenNoPathGiven(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run_every: 1h\nsteps: []\n"), 0o644))
	t.Setenv(model.ConfigEnvVar, path)

	require.NoError(t, runOnce(context.Background(), "", "imap.example.com:993"))
}

func TestRunOnceUsesExplicitPathOverDiscovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run_every: 1h\nsteps: []\n"), 0o644))
	t.Setenv(model.ConfigEnvVar, "")

	require.NoError(t, runOnce(context.Background(), path, "imap.example.com:993"))
}
