package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/remindctl/remind/model"
)

func TestConfigPerformerReadsEnvVarPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run_every: 1m\nsteps: []\n"), 0o644))
	t.Setenv(model.ConfigEnvVar, path)

	evt := ConfigPerformer{}.Perform(context.Background(), model.LoadConfig{
		Discovery: model.DefaultConfigDiscovery,
		TagID:     1,
	})
	loaded, ok := evt.(model.ConfigLoaded)
	require.True(t, ok, "event = %#v, want ConfigLoaded", evt)
	require.Equal(t, path, loaded.Path)
	require.NotEmpty(t, loaded.Contents)
}

func TestConfigPerformerFailsWhenNothingFound(t *testing.T) {
	t.Setenv(model.ConfigEnvVar, "")
	evt := ConfigPerformer{}.Perform(context.Background(), model.LoadConfig{
		Discovery: model.ConfigDiscovery{EnvVar: model.ConfigEnvVar, FallbackPaths: []string{"/nonexistent/path.yaml"}},
		TagID:     1,
	})
	_, ok := evt.(model.ConfigLoadFailed)
	require.True(t, ok, "event = %#v, want ConfigLoadFailed", evt)
}

func TestEnvPerformerFound(t *testing.T) {
	t.Setenv("REMIND_ADAPTER_TEST_VAR", "value")
	evt := EnvPerformer{}.Perform(context.Background(), model.ReadEnvVar{Name: "REMIND_ADAPTER_TEST_VAR", TagID: 2})
	loaded, ok := evt.(model.EnvVarLoaded)
	require.True(t, ok)
	require.NotNil(t, loaded.Value)
	require.Equal(t, "value", *loaded.Value)
}

func TestEnvPerformerMissing(t *testing.T) {
	os.Unsetenv("REMIND_ADAPTER_TEST_MISSING")
	evt := EnvPerformer{}.Perform(context.Background(), model.ReadEnvVar{Name: "REMIND_ADAPTER_TEST_MISSING", TagID: 3})
	loaded, ok := evt.(model.EnvVarLoaded)
	require.True(t, ok)
	require.Nil(t, loaded.Value)
}

func TestTimerPerformerFires(t *testing.T) {
	evt := TimerPerformer{}.Perform(context.Background(), model.StartTimer{Duration: time.Millisecond, TagID: 4})
	fired, ok := evt.(model.TimerFired)
	require.True(t, ok)
	require.Equal(t, model.EffId(4), fired.TagID)
}

func TestTimerPerformerRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	evt := TimerPerformer{}.Perform(ctx, model.StartTimer{Duration: time.Hour, TagID: 5})
	fired, ok := evt.(model.TimerFired)
	require.True(t, ok)
	require.Equal(t, model.EffId(5), fired.TagID)
}

func TestRegistryDispatchesToRegisteredPerformer(t *testing.T) {
	r := NewRegistry(ConfigPerformer{}, EnvPerformer{}, nil, nil, nil, TimerPerformer{})
	evt, err := r.Perform(context.Background(), model.ReadEnvVar{Name: "X", TagID: 1})
	require.NoError(t, err)
	_, ok := evt.(model.EnvVarLoaded)
	require.True(t, ok)
}

func TestRegistryErrorsOnUnregisteredPerformer(t *testing.T) {
	r := NewRegistry(ConfigPerformer{}, EnvPerformer{}, nil, nil, nil, TimerPerformer{})
	_, err := r.Perform(context.Background(), model.FetchGoogleSheetCell{TagID: 1})
	require.Error(t, err)
}
