package adapter

import (
	"context"
	"os"

	"github.com/remindctl/remind/model"
)

// EnvPerformer resolves model.ReadEnvVar from the process
// environment. By the time the daemon gets here, package secrets has
// already hydrated any names its configured backend could supply, so
// this is always a plain os.LookupEnv.
type EnvPerformer struct{}

func (EnvPerformer) Perform(_ context.Context, effect model.Effect) model.Event {
	eff := effect.(model.ReadEnvVar)
	if value, ok := os.LookupEnv(eff.Name); ok {
		return model.EnvVarLoaded{TagID: eff.TagID, Name: eff.Name, Value: &value}
	}
	return model.EnvVarLoaded{TagID: eff.TagID, Name: eff.Name, Value: nil}
}
