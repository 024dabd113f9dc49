// Package adapter performs effects on behalf of a Flow. Each
// performer handles exactly one concrete model.Effect type and
// reports back the model.Event that corresponds to it; the Flow
// itself never imports this package; only the host wiring (cmd/remind
// and daemon) does.
package adapter

import (
	"context"
	"fmt"

	"github.com/remindctl/remind/model"
)

// Performer executes one effect and returns the event it produces.
// Perform never panics on a domain failure (e.g. a missing file, a
// failed HTTP call) — it reports that failure as the effect's own
// *Failed event so the engine can surface it through the normal
// Done(Err(...)) path instead of crashing the host.
type Performer interface {
	Perform(ctx context.Context, eff model.Effect) model.Event
}

// Registry dispatches an effect to the performer registered for its
// concrete type.
type Registry struct {
	loadConfig    Performer
	readEnvVar    Performer
	googleSheet   Performer
	searchEmails  Performer
	sendTelegram  Performer
	startTimer    Performer
}

// NewRegistry wires one performer per effect kind. A nil performer
// argument is allowed for kinds a particular host deployment never
// exercises (e.g. a test host with no Telegram credentials
// configured); Perform returns an error for those if ever invoked.
func NewRegistry(loadConfig, readEnvVar, googleSheet, searchEmails, sendTelegram, startTimer Performer) *Registry {
	return &Registry{
		loadConfig:   loadConfig,
		readEnvVar:   readEnvVar,
		googleSheet:  googleSheet,
		searchEmails: searchEmails,
		sendTelegram: sendTelegram,
		startTimer:   startTimer,
	}
}

// Perform dispatches eff to its registered performer.
func (r *Registry) Perform(ctx context.Context, eff model.Effect) (model.Event, error) {
	var p Performer
	switch eff.(type) {
	case model.LoadConfig:
		p = r.loadConfig
	case model.ReadEnvVar:
		p = r.readEnvVar
	case model.FetchGoogleSheetCell:
		p = r.googleSheet
	case model.SearchEmails:
		p = r.searchEmails
	case model.SendTelegramMessage:
		p = r.sendTelegram
	case model.StartTimer:
		p = r.startTimer
	default:
		return nil, fmt.Errorf("adapter: unknown effect type %T", eff)
	}
	if p == nil {
		return nil, fmt.Errorf("adapter: no performer registered for %T", eff)
	}
	return p.Perform(ctx, eff), nil
}
