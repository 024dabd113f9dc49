package transport

import (
	"encoding/json"
	"fmt"

	"github.com/remindctl/remind/model"
)

// effectEnvelope and eventEnvelope give model.Effect/model.Event a
// wire shape: a kind discriminator plus the concrete payload. Both
// interfaces are closed sets of concrete structs (sealed by their
// unexported marker methods), so a kind switch here is exhaustive in
// the same sense a Go type switch over them would be.
type effectEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type eventEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeEffect serializes an effect for publication on the "effects"
// topic.
func EncodeEffect(eff model.Effect) ([]byte, error) {
	var kind string
	switch eff.(type) {
	case model.LoadConfig:
		kind = "load_config"
	case model.ReadEnvVar:
		kind = "read_env_var"
	case model.FetchGoogleSheetCell:
		kind = "fetch_google_sheet_cell"
	case model.SearchEmails:
		kind = "search_emails"
	case model.SendTelegramMessage:
		kind = "send_telegram_message"
	case model.StartTimer:
		kind = "start_timer"
	default:
		return nil, fmt.Errorf("unknown effect type %T", eff)
	}
	data, err := json.Marshal(eff)
	if err != nil {
		return nil, err
	}
	return json.Marshal(effectEnvelope{Kind: kind, Data: data})
}

// DecodeEffect parses bytes published on the "effects" topic.
func DecodeEffect(payload []byte) (model.Effect, error) {
	var env effectEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "load_config":
		var e model.LoadConfig
		return e, json.Unmarshal(env.Data, &e)
	case "read_env_var":
		var e model.ReadEnvVar
		return e, json.Unmarshal(env.Data, &e)
	case "fetch_google_sheet_cell":
		var e model.FetchGoogleSheetCell
		return e, json.Unmarshal(env.Data, &e)
	case "search_emails":
		var e model.SearchEmails
		return e, json.Unmarshal(env.Data, &e)
	case "send_telegram_message":
		var e model.SendTelegramMessage
		return e, json.Unmarshal(env.Data, &e)
	case "start_timer":
		var e model.StartTimer
		return e, json.Unmarshal(env.Data, &e)
	default:
		return nil, fmt.Errorf("unknown effect kind %q", env.Kind)
	}
}

// EncodeEvent serializes an event for publication on the "events"
// topic.
func EncodeEvent(evt model.Event) ([]byte, error) {
	var kind string
	switch evt.(type) {
	case model.ConfigLoaded:
		kind = "config_loaded"
	case model.ConfigLoadFailed:
		kind = "config_load_failed"
	case model.EnvVarLoaded:
		kind = "env_var_loaded"
	case model.StepCompleted:
		kind = "step_completed"
	case model.StepFailed:
		kind = "step_failed"
	case model.TimerFired:
		kind = "timer_fired"
	default:
		return nil, fmt.Errorf("unknown event type %T", evt)
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventEnvelope{Kind: kind, Data: data})
}

// DecodeEvent parses bytes published on the "events" topic.
func DecodeEvent(payload []byte) (model.Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "config_loaded":
		var e model.ConfigLoaded
		return e, json.Unmarshal(env.Data, &e)
	case "config_load_failed":
		var e model.ConfigLoadFailed
		return e, json.Unmarshal(env.Data, &e)
	case "env_var_loaded":
		var e model.EnvVarLoaded
		return e, json.Unmarshal(env.Data, &e)
	case "step_completed":
		var e model.StepCompleted
		return e, json.Unmarshal(env.Data, &e)
	case "step_failed":
		var e model.StepFailed
		return e, json.Unmarshal(env.Data, &e)
	case "timer_fired":
		var e model.TimerFired
		return e, json.Unmarshal(env.Data, &e)
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}
