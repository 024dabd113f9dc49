package adapter

import (
	"context"
	"time"

	"github.com/remindctl/remind/model"
)

// TimerPerformer resolves model.StartTimer by blocking the calling
// worker goroutine for the requested duration. It returns early with
// a TimerFired carrying the same tag if ctx is cancelled, since a
// cancelled context means the daemon is shutting down the flow
// anyway and there is no one left to ignore a stale event.
type TimerPerformer struct{}

func (TimerPerformer) Perform(ctx context.Context, effect model.Effect) model.Event {
	eff := effect.(model.StartTimer)
	t := time.NewTimer(eff.Duration)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return model.TimerFired{TagID: eff.TagID}
}
