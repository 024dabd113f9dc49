// Package engine implements the reminder workflow state machine: a
// pure, synchronous Effect/Event/Command transducer. It performs no
// I/O and reads no clock — every effect it issues is a piece of data
// the host must perform and report back via a matching event.
//
// The shape (Stage enum, pending-effect tracking, advance/execute
// split) follows beemflow's engine.Engine in structure — a registry-
// style dispatcher driven by an explicit step cursor — but the
// transition logic itself is a direct Go port of ReminderFlow, the
// ground-truth implementation this package's behavior must match
// exactly, since that's what recipes and their tests were written
// against.
package engine

import (
	"github.com/remindctl/remind/flowerr"
	"github.com/remindctl/remind/model"
	"github.com/remindctl/remind/recipe"
	"github.com/remindctl/remind/templater"
)

type stageKind int

const (
	stageInit stageKind = iota
	stageWaitingConfig
	stageLoadingEnv
	stageRunning
	stageWaitingTimer
	stageDone
)

type stage struct {
	kind stageKind
	tag  model.EffId // meaningful for WaitingConfig / WaitingTimer
	err  error        // meaningful for Done
}

// pendingStep tracks the single outstanding step effect while the
// engine is in the Running stage.
type pendingStep struct {
	stepIndex    int
	tag          model.EffId
	storeAs      *string
	requireValue bool
}

// runState tracks progress through the current cycle's steps.
type runState struct {
	stepIndex int
	variables map[string]string
	pending   *pendingStep
}

// Flow is one reminder workflow's state machine. It has a single
// owner: callers must not invoke Start/OnEvent concurrently on the
// same Flow from more than one goroutine.
type Flow struct {
	stage               stage
	nextTagValue        uint64
	config              *model.FlowConfig
	envValues           map[string]string
	resolvedCredentials map[string]string
	pendingEnv          []string
	currentEnv          *envWait
	run                 *runState
}

type envWait struct {
	name string
	tag  model.EffId
}

// New returns a fresh Flow in its initial stage.
func New() *Flow {
	return &Flow{
		stage:               stage{kind: stageInit},
		nextTagValue:        1,
		envValues:           map[string]string{},
		resolvedCredentials: map[string]string{},
	}
}

// Start issues the first effect of a run. From any stage besides
// Init or Done it returns Wait.
func (f *Flow) Start() model.Command {
	switch f.stage.kind {
	case stageInit:
		tag := f.nextTag()
		f.stage = stage{kind: stageWaitingConfig, tag: tag}
		return model.Do{Effect: model.LoadConfig{Discovery: model.DefaultConfigDiscovery, TagID: tag}}
	case stageDone:
		return model.Done{Err: f.stage.err}
	default:
		return model.Wait{}
	}
}

// OnEvent advances the machine in response to one reported event.
// Events whose tag doesn't match the single outstanding effect are
// silently ignored (Wait) — this is the sole idempotency mechanism:
// duplicate or stale events never re-trigger a transition.
func (f *Flow) OnEvent(event model.Event) model.Command {
	switch f.stage.kind {
	case stageWaitingConfig:
		return f.onConfigEvent(event)
	case stageLoadingEnv:
		return f.onEnvEvent(event)
	case stageRunning:
		return f.onRunningEvent(event)
	case stageWaitingTimer:
		return f.onTimerEvent(event)
	case stageDone:
		return model.Done{Err: f.stage.err}
	default: // stageInit
		return model.Wait{}
	}
}

func (f *Flow) onConfigEvent(event model.Event) model.Command {
	switch ev := event.(type) {
	case model.ConfigLoaded:
		if ev.TagID != f.stage.tag {
			return model.Wait{}
		}
		cfg, err := recipe.Parse(ev.Contents)
		if err != nil {
			return f.finishError(err)
		}
		f.config = cfg
		f.prepareEnvRequests()
		f.stage = stage{kind: stageLoadingEnv}
		return f.fetchNextEnvOrStartRun()
	case model.ConfigLoadFailed:
		if ev.TagID != f.stage.tag {
			return model.Wait{}
		}
		return f.finishError(flowerr.NewConfigLoad(ev.Error))
	default:
		return model.Wait{}
	}
}

func (f *Flow) onEnvEvent(event model.Event) model.Command {
	ev, ok := event.(model.EnvVarLoaded)
	if !ok {
		return model.Wait{}
	}
	if f.currentEnv == nil {
		return model.Wait{}
	}
	if f.currentEnv.tag != ev.TagID || f.currentEnv.name != ev.Name {
		return model.Wait{}
	}
	expectedName := f.currentEnv.name
	f.currentEnv = nil
	if ev.Value == nil {
		return f.finishError(flowerr.NewMissingEnvVar(expectedName))
	}
	f.envValues[expectedName] = *ev.Value
	return f.fetchNextEnvOrStartRun()
}

func (f *Flow) onRunningEvent(event model.Event) model.Command {
	switch ev := event.(type) {
	case model.StepCompleted:
		if f.run == nil || f.run.pending == nil {
			return model.Wait{}
		}
		pending := f.run.pending
		if pending.tag != ev.TagID {
			return model.Wait{}
		}
		f.run.pending = nil
		if pending.storeAs != nil {
			if ev.Value == nil {
				return f.finishError(flowerr.NewStepFailure(pending.stepIndex, "missing value in step result"))
			}
			f.run.variables[*pending.storeAs] = *ev.Value
		} else if pending.requireValue && ev.Value == nil {
			return f.finishError(flowerr.NewStepFailure(pending.stepIndex, "missing value in step result"))
		}
		f.run.stepIndex++
		return f.advanceRun()
	case model.StepFailed:
		if f.run != nil && f.run.pending != nil && f.run.pending.tag == ev.TagID {
			return f.finishError(flowerr.NewStepFailure(f.run.pending.stepIndex, ev.Error))
		}
		return model.Wait{}
	default:
		// TimerFired and any stage-stale event are silently ignored here.
		return model.Wait{}
	}
}

func (f *Flow) onTimerEvent(event model.Event) model.Command {
	ev, ok := event.(model.TimerFired)
	if !ok || ev.TagID != f.stage.tag {
		return model.Wait{}
	}
	return f.startRun()
}

func (f *Flow) nextTag() model.EffId {
	id := model.EffId(f.nextTagValue)
	f.nextTagValue++
	return id
}

func (f *Flow) prepareEnvRequests() {
	f.envValues = map[string]string{}
	f.resolvedCredentials = map[string]string{}
	f.currentEnv = nil
	f.pendingEnv = nil
	if f.config != nil {
		f.pendingEnv = f.config.EnvRequests()
	}
}

func (f *Flow) fetchNextEnvOrStartRun() model.Command {
	if f.currentEnv != nil {
		return model.Wait{}
	}
	if len(f.pendingEnv) > 0 {
		name := f.pendingEnv[0]
		f.pendingEnv = f.pendingEnv[1:]
		tag := f.nextTag()
		f.currentEnv = &envWait{name: name, tag: tag}
		return model.Do{Effect: model.ReadEnvVar{Name: name, TagID: tag}}
	}
	if err := f.finalizeCredentials(); err != nil {
		return f.finishError(err)
	}
	return f.startRun()
}

func (f *Flow) finalizeCredentials() error {
	if f.config == nil {
		return nil
	}
	resolved := map[string]string{}
	for name, src := range f.config.Credentials {
		switch s := src.(type) {
		case model.CredentialValue:
			resolved[name] = s.Value
		case model.CredentialEnvVar:
			v, ok := f.envValues[s.Name]
			if !ok {
				return flowerr.NewMissingEnvVar(s.Name)
			}
			resolved[name] = v
		}
	}
	f.resolvedCredentials = resolved
	return nil
}

func (f *Flow) startRun() model.Command {
	if f.config == nil {
		return model.Wait{}
	}
	f.run = &runState{variables: map[string]string{}}
	f.stage = stage{kind: stageRunning}
	return f.advanceRun()
}

func (f *Flow) advanceRun() model.Command {
	if f.config == nil || f.run == nil {
		return model.Wait{}
	}
	if f.run.pending != nil {
		return model.Wait{}
	}
	if f.run.stepIndex >= len(f.config.Steps) {
		runEvery := f.config.RunEvery
		f.run = nil
		tag := f.nextTag()
		f.stage = stage{kind: stageWaitingTimer, tag: tag}
		return model.Do{Effect: model.StartTimer{Duration: runEvery, TagID: tag}}
	}
	cmd, err := f.executeStep(f.run.stepIndex)
	if err != nil {
		return f.finishError(err)
	}
	return cmd
}

func (f *Flow) executeStep(stepIndex int) (model.Command, error) {
	if f.config == nil {
		return nil, flowerr.NewInvalidConfig("configuration missing")
	}
	if stepIndex < 0 || stepIndex >= len(f.config.Steps) {
		return nil, flowerr.NewInvalidConfig("step is missing")
	}
	step := f.config.Steps[stepIndex]
	variables := f.run.variables

	var pending pendingStep
	var effect model.Effect

	switch s := step.(type) {
	case model.GoogleSheetStep:
		sheetID, err := f.resolveValue(s.SheetID, variables)
		if err != nil {
			return nil, err
		}
		var worksheet *string
		if s.Worksheet != nil {
			w, err := f.resolveValue(*s.Worksheet, variables)
			if err != nil {
				return nil, err
			}
			worksheet = &w
		}
		creds, err := f.resolveCredentialsField(s.Credentials)
		if err != nil {
			return nil, err
		}
		tag := f.nextTag()
		storeAs := s.StoreAs
		pending = pendingStep{stepIndex: stepIndex, tag: tag, storeAs: &storeAs, requireValue: true}
		effect = model.FetchGoogleSheetCell{
			SheetID: sheetID, Worksheet: worksheet, Cell: s.Cell, Credentials: creds, TagID: tag,
		}
	case model.EmailStep:
		account, err := f.resolveValue(s.Account, variables)
		if err != nil {
			return nil, err
		}
		regex, err := f.resolveValue(s.Regex, variables)
		if err != nil {
			return nil, err
		}
		creds, err := f.resolveCredentialsField(s.Credentials)
		if err != nil {
			return nil, err
		}
		tag := f.nextTag()
		pending = pendingStep{stepIndex: stepIndex, tag: tag, storeAs: s.StoreAs, requireValue: s.StoreAs != nil}
		effect = model.SearchEmails{
			Account: account, Field: s.Field, Regex: regex, Credentials: creds, TagID: tag,
		}
	case model.TelegramStep:
		chatID, err := f.resolveValue(s.ChatID, variables)
		if err != nil {
			return nil, err
		}
		message, err := f.resolveValue(s.Message, variables)
		if err != nil {
			return nil, err
		}
		creds, err := f.resolveCredentialsField(s.Credentials)
		if err != nil {
			return nil, err
		}
		tag := f.nextTag()
		pending = pendingStep{stepIndex: stepIndex, tag: tag, storeAs: nil, requireValue: false}
		effect = model.SendTelegramMessage{
			ChatID: chatID, Message: message, Credentials: creds, TagID: tag,
		}
	default:
		return nil, flowerr.NewInvalidConfig("unknown step kind")
	}

	f.run.pending = &pending
	return model.Do{Effect: effect}, nil
}

func (f *Flow) resolveCredentialsField(name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	v, err := f.credentialValue(*name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (f *Flow) credentialValue(name string) (string, error) {
	v, ok := f.resolvedCredentials[name]
	if !ok {
		return "", flowerr.NewMissingCredential(name)
	}
	return v, nil
}

func (f *Flow) resolveValue(ref model.ValueRef, variables map[string]string) (string, error) {
	switch r := ref.(type) {
	case model.Literal:
		return templater.Render(r.Template, variables, f.resolvedCredentials, f.envValues)
	case model.EnvRef:
		v, ok := f.envValues[r.Name]
		if !ok {
			return "", flowerr.NewMissingEnvVar(r.Name)
		}
		return v, nil
	case model.CredentialRef:
		return f.credentialValue(r.Name)
	case model.VariableRef:
		v, ok := variables[r.Name]
		if !ok {
			return "", flowerr.NewMissingVariable(r.Name)
		}
		return v, nil
	default:
		return "", flowerr.NewInvalidConfig("unknown value reference kind")
	}
}

func (f *Flow) finishError(err error) model.Command {
	f.stage = stage{kind: stageDone, err: err}
	f.run = nil
	return model.Done{Err: err}
}

// Done reports the terminal result once the machine has reached the
// Done stage; it is nil (and meaningless) beforehand.
func (f *Flow) Done() error {
	if f.stage.kind == stageDone {
		return f.stage.err
	}
	return nil
}

// Variables returns a copy of the current cycle's captured step
// outputs, or nil if no cycle is in progress. It exists purely for
// host-side observability (audit history, archival) — the engine
// never reads it back.
func (f *Flow) Variables() map[string]string {
	if f.run == nil {
		return nil
	}
	out := make(map[string]string, len(f.run.variables))
	for k, v := range f.run.variables {
		out[k] = v
	}
	return out
}
