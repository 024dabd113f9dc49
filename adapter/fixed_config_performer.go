package adapter

import "context"
import "github.com/remindctl/remind/model"

// FixedConfigPerformer resolves model.LoadConfig by always reading a
// single path chosen by the host, ignoring the effect's own
// model.ConfigDiscovery. The engine hardcodes model.DefaultConfigDiscovery
// on every Flow, so a daemon running several named workflows out of
// one process needs a way to tell each Flow's LoadConfig apart
// without relying on a single shared environment variable.
type FixedConfigPerformer struct {
	Path string
}

func (p FixedConfigPerformer) Perform(_ context.Context, effect model.Effect) model.Event {
	eff := effect.(model.LoadConfig)
	contents, ok := readConfigFile(p.Path)
	if !ok {
		return model.ConfigLoadFailed{TagID: eff.TagID, Error: "could not read recipe file: " + p.Path}
	}
	return model.ConfigLoaded{TagID: eff.TagID, Path: p.Path, Contents: contents}
}
