package adapter

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/remindctl/remind/model"
)

// ConfigPerformer resolves model.LoadConfig by walking a
// model.ConfigDiscovery: the named environment variable first, then
// each fallback path in order, stopping at the first one that reads
// successfully.
type ConfigPerformer struct{}

func (ConfigPerformer) Perform(_ context.Context, effect model.Effect) model.Event {
	eff := effect.(model.LoadConfig)

	if path := os.Getenv(eff.Discovery.EnvVar); path != "" {
		if contents, ok := readConfigFile(path); ok {
			return model.ConfigLoaded{TagID: eff.TagID, Path: path, Contents: contents}
		}
		return model.ConfigLoadFailed{
			TagID: eff.TagID,
			Error: eff.Discovery.EnvVar + " points to " + path + " but it could not be read",
		}
	}

	for _, path := range eff.Discovery.FallbackPaths {
		resolved := expandHome(path)
		if contents, ok := readConfigFile(resolved); ok {
			return model.ConfigLoaded{TagID: eff.TagID, Path: resolved, Contents: contents}
		}
	}

	return model.ConfigLoadFailed{
		TagID: eff.TagID,
		Error: "no configuration file found in any discovery location",
	}
}

func readConfigFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
