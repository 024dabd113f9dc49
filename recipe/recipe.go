// Package recipe parses a reminder recipe's YAML text into a
// model.FlowConfig, the shape the workflow engine runs from.
//
// The on-disk grammar mirrors beemflow's model.Step: a tagged field
// (value/env/credential/var, or a step's "type") picked out of the
// YAML node by hand, the same technique model.Step.UnmarshalYAML uses
// for its "parallel" field, rather than a generic discriminated-union
// library.
package recipe

import (
	"fmt"

	"github.com/remindctl/remind/duration"
	"github.com/remindctl/remind/flowerr"
	"github.com/remindctl/remind/model"
	"gopkg.in/yaml.v3"
)

// Parse decodes recipe YAML text into a validated model.FlowConfig.
// Every failure is wrapped as flowerr.InvalidConfig, matching
// FlowConfig::from_yaml's single error surface for malformed input.
func Parse(contents string) (*model.FlowConfig, error) {
	var raw rawConfig
	if err := yaml.Unmarshal([]byte(contents), &raw); err != nil {
		return nil, flowerr.NewInvalidConfig(err.Error())
	}

	runEvery, err := duration.Parse(raw.RunEvery)
	if err != nil {
		return nil, flowerr.NewInvalidConfig("invalid run_every value")
	}

	credentials := map[string]model.CredentialSource{}
	for name, vm := range raw.Credentials {
		src, err := vm.toCredentialSource()
		if err != nil {
			return nil, flowerr.NewInvalidConfig(fmt.Sprintf("credential '%s': %s", name, err))
		}
		credentials[name] = src
	}

	steps := make([]model.Step, 0, len(raw.Steps))
	for i, rs := range raw.Steps {
		step, err := rs.toStep()
		if err != nil {
			return nil, flowerr.NewInvalidConfig(fmt.Sprintf("step %d: %s", i, err))
		}
		steps = append(steps, step)
	}

	return &model.FlowConfig{
		RunEvery:    runEvery,
		Credentials: credentials,
		Steps:       steps,
	}, nil
}

// rawConfig is the intermediate YAML decode target, ahead of
// validation and lowering into model.FlowConfig.
type rawConfig struct {
	RunEvery    string               `yaml:"run_every"`
	Credentials map[string]valueMap  `yaml:"credentials"`
	Steps       []rawStep            `yaml:"steps"`
}

// valueMap is the shared {value|env|credential|var} shape both
// credentials and value references decode through.
type valueMap struct {
	Value      *string `yaml:"value"`
	Env        *string `yaml:"env"`
	Credential *string `yaml:"credential"`
	Var        *string `yaml:"var"`
}

var valueMapKeys = map[string]bool{"value": true, "env": true, "credential": true, "var": true}

// UnmarshalYAML rejects any key other than value/env/credential/var,
// so a typo like {value: x, vlaue: y} fails to parse instead of
// silently keeping only the recognized field.
func (m *valueMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("value reference must be a mapping")
	}
	for i := 0; i < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if !valueMapKeys[key] {
			return fmt.Errorf("unknown field '%s'", key)
		}
	}
	type rawValueMap valueMap
	var raw rawValueMap
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*m = valueMap(raw)
	return nil
}

func (m valueMap) toCredentialSource() (model.CredentialSource, error) {
	if m.Credential != nil || m.Var != nil {
		return nil, fmt.Errorf("credential may only specify 'value' or 'env'")
	}
	switch {
	case m.Value != nil && m.Env == nil:
		return model.CredentialValue{Value: *m.Value}, nil
	case m.Value == nil && m.Env != nil:
		return model.CredentialEnvVar{Name: *m.Env}, nil
	case m.Value != nil && m.Env != nil:
		return nil, fmt.Errorf("credential must specify either 'value' or 'env'")
	default:
		return nil, fmt.Errorf("credential must specify 'value' or 'env'")
	}
}

func (m valueMap) toValueRef() (model.ValueRef, error) {
	set := 0
	for _, p := range []*string{m.Value, m.Env, m.Credential, m.Var} {
		if p != nil {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, fmt.Errorf("value reference must specify one of 'value', 'env', 'credential', or 'var'")
	case set > 1:
		return nil, fmt.Errorf("value reference must specify only one source")
	case m.Value != nil:
		return model.Literal{Template: *m.Value}, nil
	case m.Env != nil:
		return model.EnvRef{Name: *m.Env}, nil
	case m.Credential != nil:
		return model.CredentialRef{Name: *m.Credential}, nil
	default:
		return model.VariableRef{Name: *m.Var}, nil
	}
}

// valueRefNode decodes either a bare scalar (a literal) or a value
// map, matching ValueRef's Deserialize impl: strings become
// Literal directly, maps go through valueMap.toValueRef.
type valueRefNode struct {
	ref model.ValueRef
}

func (n *valueRefNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		n.ref = model.Literal{Template: s}
		return nil
	}
	var vm valueMap
	if err := value.Decode(&vm); err != nil {
		return err
	}
	ref, err := vm.toValueRef()
	if err != nil {
		return err
	}
	n.ref = ref
	return nil
}

// rawStep decodes a step's common optional fields; toStep picks the
// concrete model.Step variant based on the "type" discriminator,
// following the same manual yaml.Node inspection beemflow's
// model.Step.UnmarshalYAML uses for its "parallel" field.
type rawStep struct {
	Type        string        `yaml:"type"`
	SheetID     *valueRefNode `yaml:"sheet_id"`
	Worksheet   *valueRefNode `yaml:"worksheet"`
	Cell        *model.CellRef `yaml:"cell"`
	StoreAs     *string       `yaml:"store_as"`
	Credentials *string       `yaml:"credentials"`
	Account     *valueRefNode `yaml:"account"`
	Field       *string       `yaml:"field"`
	Regex       *valueRefNode `yaml:"regex"`
	ChatID      *valueRefNode `yaml:"chat_id"`
	Message     *valueRefNode `yaml:"message"`
}

func (s rawStep) toStep() (model.Step, error) {
	switch s.Type {
	case "google_sheet":
		if s.SheetID == nil {
			return nil, fmt.Errorf("google_sheet step requires 'sheet_id'")
		}
		if s.Cell == nil {
			return nil, fmt.Errorf("google_sheet step requires 'cell'")
		}
		if s.StoreAs == nil {
			return nil, fmt.Errorf("google_sheet step requires 'store_as'")
		}
		var worksheet *model.ValueRef
		if s.Worksheet != nil {
			worksheet = &s.Worksheet.ref
		}
		return model.GoogleSheetStep{
			SheetID:     s.SheetID.ref,
			Worksheet:   worksheet,
			Cell:        *s.Cell,
			StoreAs:     *s.StoreAs,
			Credentials: s.Credentials,
		}, nil
	case "email":
		if s.Account == nil {
			return nil, fmt.Errorf("email step requires 'account'")
		}
		if s.Regex == nil {
			return nil, fmt.Errorf("email step requires 'regex'")
		}
		field, err := parseEmailField(s.Field)
		if err != nil {
			return nil, err
		}
		return model.EmailStep{
			Account:     s.Account.ref,
			Field:       field,
			Regex:       s.Regex.ref,
			StoreAs:     s.StoreAs,
			Credentials: s.Credentials,
		}, nil
	case "telegram":
		if s.ChatID == nil {
			return nil, fmt.Errorf("telegram step requires 'chat_id'")
		}
		if s.Message == nil {
			return nil, fmt.Errorf("telegram step requires 'message'")
		}
		return model.TelegramStep{
			ChatID:      s.ChatID.ref,
			Message:     s.Message.ref,
			Credentials: s.Credentials,
		}, nil
	default:
		return nil, fmt.Errorf("unknown step type '%s'", s.Type)
	}
}

func parseEmailField(raw *string) (model.EmailField, error) {
	if raw == nil {
		return "", fmt.Errorf("email step requires 'field'")
	}
	switch model.EmailField(*raw) {
	case model.EmailFieldSubject, model.EmailFieldSender, model.EmailFieldRecipient:
		return model.EmailField(*raw), nil
	default:
		return "", fmt.Errorf("email step has unknown field '%s'", *raw)
	}
}
