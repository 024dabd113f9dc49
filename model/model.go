// Package model holds the value types shared between the workflow
// engine and its host: effects the engine asks the host to perform,
// events the host reports back, the commands the engine returns from
// each transition, and the parsed shape of a reminder recipe.
package model

import (
	"sort"
	"time"
)

// EffId tags one outstanding effect so a later event can be matched
// back to it. It is a newtype, not a plain uint64, so callers can't
// accidentally do arithmetic on it.
type EffId uint64

// ConfigDiscovery describes how the host should locate the recipe
// file: first an environment variable, then an ordered list of
// fallback paths.
type ConfigDiscovery struct {
	EnvVar        string
	FallbackPaths []string
}

const ConfigEnvVar = "REMIND_CONFIG_PATH"

var DefaultConfigPaths = []string{"~/.remind/config.yaml", "/etc/remind-config.yaml"}

var DefaultConfigDiscovery = ConfigDiscovery{
	EnvVar:        ConfigEnvVar,
	FallbackPaths: DefaultConfigPaths,
}

// Effect is something the engine asks the host to do. Every variant
// carries its own correlation tag.
type Effect interface {
	effect()
	Tag() EffId
}

type LoadConfig struct {
	Discovery ConfigDiscovery
	TagID     EffId
}

func (LoadConfig) effect()      {}
func (e LoadConfig) Tag() EffId { return e.TagID }

type ReadEnvVar struct {
	Name  string
	TagID EffId
}

func (ReadEnvVar) effect()      {}
func (e ReadEnvVar) Tag() EffId { return e.TagID }

type FetchGoogleSheetCell struct {
	SheetID     string
	Worksheet   *string
	Cell        CellRef
	Credentials *string
	TagID       EffId
}

func (FetchGoogleSheetCell) effect()      {}
func (e FetchGoogleSheetCell) Tag() EffId { return e.TagID }

type SearchEmails struct {
	Account     string
	Field       EmailField
	Regex       string
	Credentials *string
	TagID       EffId
}

func (SearchEmails) effect()      {}
func (e SearchEmails) Tag() EffId { return e.TagID }

type SendTelegramMessage struct {
	ChatID      string
	Message     string
	Credentials *string
	TagID       EffId
}

func (SendTelegramMessage) effect()      {}
func (e SendTelegramMessage) Tag() EffId { return e.TagID }

type StartTimer struct {
	Duration time.Duration
	TagID    EffId
}

func (StartTimer) effect()      {}
func (e StartTimer) Tag() EffId { return e.TagID }

// CellRef identifies one cell in a worksheet by zero-based row/column.
type CellRef struct {
	Row    uint32 `yaml:"row" json:"row"`
	Column uint32 `yaml:"column" json:"column"`
}

// EmailField names which header of a message a search step matches
// its regex against.
type EmailField string

const (
	EmailFieldSubject   EmailField = "subject"
	EmailFieldSender    EmailField = "sender"
	EmailFieldRecipient EmailField = "recipient"
)

// Event is something the host reports back to the engine in response
// to an effect it previously issued.
type Event interface {
	event()
}

type ConfigLoaded struct {
	TagID    EffId
	Path     string
	Contents string
}

func (ConfigLoaded) event() {}

type ConfigLoadFailed struct {
	TagID EffId
	Error string
}

func (ConfigLoadFailed) event() {}

type EnvVarLoaded struct {
	TagID EffId
	Name  string
	Value *string
}

func (EnvVarLoaded) event() {}

type StepCompleted struct {
	TagID EffId
	Value *string
}

func (StepCompleted) event() {}

type StepFailed struct {
	TagID EffId
	Error string
}

func (StepFailed) event() {}

type TimerFired struct {
	TagID EffId
}

func (TimerFired) event() {}

// Command is what a transition returns: perform an effect, wait for
// a matching event, or terminate.
type Command interface {
	command()
}

type Do struct {
	Effect Effect
}

func (Do) command() {}

type Wait struct{}

func (Wait) command() {}

// Done terminates the run. Err is nil on success.
type Done struct {
	Err error
}

func (Done) command() {}

// FlowConfig is the parsed, validated shape of a reminder recipe.
type FlowConfig struct {
	RunEvery    time.Duration
	Credentials map[string]CredentialSource
	Steps       []Step
}

// CredentialSource is the source of a `credentials:` entry: either a
// literal value or an environment variable name to read it from.
type CredentialSource interface {
	credentialSource()
}

type CredentialValue struct{ Value string }

func (CredentialValue) credentialSource() {}

type CredentialEnvVar struct{ Name string }

func (CredentialEnvVar) credentialSource() {}

// Step is one action a cycle performs, in order.
type Step interface {
	step()
	CollectEnv(set map[string]struct{})
}

type GoogleSheetStep struct {
	SheetID     ValueRef
	Worksheet   *ValueRef
	Cell        CellRef
	StoreAs     string
	Credentials *string
}

func (GoogleSheetStep) step() {}

func (s GoogleSheetStep) CollectEnv(set map[string]struct{}) {
	s.SheetID.collectEnv(set)
	if s.Worksheet != nil {
		(*s.Worksheet).collectEnv(set)
	}
}

type EmailStep struct {
	Account     ValueRef
	Field       EmailField
	Regex       ValueRef
	StoreAs     *string
	Credentials *string
}

func (EmailStep) step() {}

func (s EmailStep) CollectEnv(set map[string]struct{}) {
	s.Account.collectEnv(set)
	s.Regex.collectEnv(set)
}

type TelegramStep struct {
	ChatID      ValueRef
	Message     ValueRef
	Credentials *string
}

func (TelegramStep) step() {}

func (s TelegramStep) CollectEnv(set map[string]struct{}) {
	s.ChatID.collectEnv(set)
	s.Message.collectEnv(set)
}

// ValueRef is a typed reference to a value a step needs: a literal
// (itself subject to {{name}} template substitution), an environment
// variable, a named credential, or a run variable captured by an
// earlier step.
type ValueRef interface {
	valueRef()
	collectEnv(set map[string]struct{})
}

type Literal struct{ Template string }

func (Literal) valueRef()                      {}
func (Literal) collectEnv(map[string]struct{}) {}

type EnvRef struct{ Name string }

func (EnvRef) valueRef() {}
func (r EnvRef) collectEnv(set map[string]struct{}) {
	set[r.Name] = struct{}{}
}

type CredentialRef struct{ Name string }

func (CredentialRef) valueRef()                      {}
func (CredentialRef) collectEnv(map[string]struct{}) {}

type VariableRef struct{ Name string }

func (VariableRef) valueRef()                      {}
func (VariableRef) collectEnv(map[string]struct{}) {}

// EnvRequests returns the set of environment variable names this
// config needs, gathered from credentials and every step's value
// references, in sorted order.
func (c *FlowConfig) EnvRequests() []string {
	set := map[string]struct{}{}
	for _, src := range c.Credentials {
		if ev, ok := src.(CredentialEnvVar); ok {
			set[ev.Name] = struct{}{}
		}
	}
	for _, s := range c.Steps {
		s.CollectEnv(set)
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
