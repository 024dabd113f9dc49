// Package flowerr defines the typed error kinds a workflow run can
// terminate with. Every kind renders to an exact, documented message
// so hosts and tests can match on the string.
package flowerr

import "fmt"

// Kind distinguishes the terminal error categories a run can produce.
type Kind int

const (
	ConfigLoad Kind = iota
	InvalidConfig
	MissingEnvVar
	MissingCredential
	MissingVariable
	InvalidTemplate
	StepFailure
)

// FlowError is the terminal error a run finishes with.
type FlowError struct {
	Kind      Kind
	Message   string
	StepIndex int // only meaningful for StepFailure
}

func (e *FlowError) Error() string {
	switch e.Kind {
	case ConfigLoad:
		return "failed to load configuration: " + e.Message
	case InvalidConfig:
		return "invalid configuration: " + e.Message
	case MissingEnvVar:
		return fmt.Sprintf("environment variable '%s' is required", e.Message)
	case MissingCredential:
		return fmt.Sprintf("credential '%s' is not defined", e.Message)
	case MissingVariable:
		return fmt.Sprintf("value for '%s' is not available", e.Message)
	case InvalidTemplate:
		return "template error: " + e.Message
	case StepFailure:
		return fmt.Sprintf("step %d failed: %s", e.StepIndex+1, e.Message)
	default:
		return e.Message
	}
}

func NewConfigLoad(msg string) error      { return &FlowError{Kind: ConfigLoad, Message: msg} }
func NewInvalidConfig(msg string) error   { return &FlowError{Kind: InvalidConfig, Message: msg} }
func NewMissingEnvVar(name string) error  { return &FlowError{Kind: MissingEnvVar, Message: name} }
func NewMissingCredential(name string) error {
	return &FlowError{Kind: MissingCredential, Message: name}
}
func NewMissingVariable(name string) error { return &FlowError{Kind: MissingVariable, Message: name} }
func NewInvalidTemplate(msg string) error  { return &FlowError{Kind: InvalidTemplate, Message: msg} }

func NewStepFailure(stepIndex int, msg string) error {
	return &FlowError{Kind: StepFailure, Message: msg, StepIndex: stepIndex}
}
