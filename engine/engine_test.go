package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/remindctl/remind/model"
)

const happyPathRecipe = `
run_every: "10m"
credentials:
  google_docs: { env: GOOGLE_DOCS_TOKEN }
  telegram_bot: { env: TELEGRAM_BOT_TOKEN }
steps:
  - type: google_sheet
    sheet_id: { env: SHEET_ID }
    cell: { row: 2, column: 3 }
    store_as: sheet_value
    credentials: google_docs
  - type: email
    account: "alerts@example.com"
    field: subject
    regex: "Alert {{sheet_value}}"
    store_as: email_subject
  - type: telegram
    chat_id: "@channel"
    message: "We saw {{email_subject}}"
    credentials: telegram_bot
`

func strPtr(s string) *string { return &s }

// TestScenarioAHappyPath walks the exact effect/event trace a full
// cycle followed by the start of a second cycle produces.
func TestScenarioAHappyPath(t *testing.T) {
	f := New()

	cmd := f.Start()
	doCmd, ok := cmd.(model.Do)
	require.True(t, ok, "Start() = %#v, want Do", cmd)
	loadCfg, ok := doCmd.Effect.(model.LoadConfig)
	require.True(t, ok)
	require.Equal(t, model.EffId(1), loadCfg.Tag())

	cmd = f.OnEvent(model.ConfigLoaded{TagID: 1, Path: "x", Contents: happyPathRecipe})
	assertReadEnvVar(t, cmd, "GOOGLE_DOCS_TOKEN", 2)

	cmd = f.OnEvent(model.EnvVarLoaded{TagID: 2, Name: "GOOGLE_DOCS_TOKEN", Value: strPtr("docs-cred")})
	assertReadEnvVar(t, cmd, "SHEET_ID", 3)

	cmd = f.OnEvent(model.EnvVarLoaded{TagID: 3, Name: "SHEET_ID", Value: strPtr("sheet-123")})
	assertReadEnvVar(t, cmd, "TELEGRAM_BOT_TOKEN", 4)

	cmd = f.OnEvent(model.EnvVarLoaded{TagID: 4, Name: "TELEGRAM_BOT_TOKEN", Value: strPtr("tg-token")})
	doCmd, ok = cmd.(model.Do)
	require.True(t, ok, "cmd = %#v, want Do", cmd)
	sheetEff, ok := doCmd.Effect.(model.FetchGoogleSheetCell)
	require.True(t, ok, "effect = %#v, want FetchGoogleSheetCell", doCmd.Effect)
	require.Equal(t, "sheet-123", sheetEff.SheetID)
	require.Equal(t, model.CellRef{Row: 2, Column: 3}, sheetEff.Cell)
	require.NotNil(t, sheetEff.Credentials)
	require.Equal(t, "docs-cred", *sheetEff.Credentials)
	require.Equal(t, model.EffId(5), sheetEff.Tag())

	cmd = f.OnEvent(model.StepCompleted{TagID: 5, Value: strPtr("2024-05-01")})
	doCmd, ok = cmd.(model.Do)
	require.True(t, ok, "cmd = %#v, want Do", cmd)
	emailEff, ok := doCmd.Effect.(model.SearchEmails)
	require.True(t, ok, "effect = %#v, want SearchEmails", doCmd.Effect)
	require.Equal(t, "alerts@example.com", emailEff.Account)
	require.Equal(t, model.EmailFieldSubject, emailEff.Field)
	require.Equal(t, "Alert 2024-05-01", emailEff.Regex)
	require.Nil(t, emailEff.Credentials)
	require.Equal(t, model.EffId(6), emailEff.Tag())

	cmd = f.OnEvent(model.StepCompleted{TagID: 6, Value: strPtr("Alert 2024-05-01")})
	doCmd, ok = cmd.(model.Do)
	require.True(t, ok, "cmd = %#v, want Do", cmd)
	tgEff, ok := doCmd.Effect.(model.SendTelegramMessage)
	require.True(t, ok, "effect = %#v, want SendTelegramMessage", doCmd.Effect)
	require.Equal(t, "@channel", tgEff.ChatID)
	require.Equal(t, "We saw Alert 2024-05-01", tgEff.Message)
	require.NotNil(t, tgEff.Credentials)
	require.Equal(t, "tg-token", *tgEff.Credentials)
	require.Equal(t, model.EffId(7), tgEff.Tag())

	cmd = f.OnEvent(model.StepCompleted{TagID: 7, Value: nil})
	doCmd, ok = cmd.(model.Do)
	require.True(t, ok, "cmd = %#v, want Do", cmd)
	timerEff, ok := doCmd.Effect.(model.StartTimer)
	require.True(t, ok, "effect = %#v, want StartTimer", doCmd.Effect)
	require.Equal(t, float64(600), timerEff.Duration.Seconds())
	require.Equal(t, model.EffId(8), timerEff.Tag())

	cmd = f.OnEvent(model.TimerFired{TagID: 8})
	doCmd, ok = cmd.(model.Do)
	require.True(t, ok, "cmd = %#v, want Do", cmd)
	sheetEff2, ok := doCmd.Effect.(model.FetchGoogleSheetCell)
	require.True(t, ok)
	require.Equal(t, model.EffId(9), sheetEff2.Tag())
}

func assertReadEnvVar(t *testing.T, cmd model.Command, wantName string, wantTag model.EffId) {
	t.Helper()
	doCmd, ok := cmd.(model.Do)
	require.True(t, ok, "cmd = %#v, want Do", cmd)
	eff, ok := doCmd.Effect.(model.ReadEnvVar)
	require.True(t, ok, "effect = %#v, want ReadEnvVar", doCmd.Effect)
	require.Equal(t, wantName, eff.Name)
	require.Equal(t, wantTag, eff.Tag())
}

func TestScenarioBConfigMissing(t *testing.T) {
	f := New()
	f.Start()
	cmd := f.OnEvent(model.ConfigLoadFailed{TagID: 1, Error: "missing"})
	done, ok := cmd.(model.Done)
	require.True(t, ok, "cmd = %#v, want Done(Err)", cmd)
	require.NotNil(t, done.Err)
	require.Equal(t, "failed to load configuration: missing", done.Err.Error())
}

func TestScenarioCInvalidRecipe(t *testing.T) {
	f := New()
	f.Start()
	cmd := f.OnEvent(model.ConfigLoaded{TagID: 1, Contents: "invalid: ["})
	done, ok := cmd.(model.Done)
	require.True(t, ok, "cmd = %#v, want Done(Err)", cmd)
	require.NotNil(t, done.Err)
	require.Contains(t, done.Err.Error(), "invalid configuration: ")
}

func TestScenarioDEnvVarUnset(t *testing.T) {
	f := New()
	f.Start()
	f.OnEvent(model.ConfigLoaded{TagID: 1, Contents: happyPathRecipe})
	cmd := f.OnEvent(model.EnvVarLoaded{TagID: 2, Name: "GOOGLE_DOCS_TOKEN", Value: nil})
	done, ok := cmd.(model.Done)
	require.True(t, ok, "cmd = %#v, want Done", cmd)
	require.NotNil(t, done.Err)
	require.Equal(t, "environment variable 'GOOGLE_DOCS_TOKEN' is required", done.Err.Error())
}

const singleStepUnknownTemplateRecipe = `
run_every: "1m"
steps:
  - type: telegram
    chat_id: "@channel"
    message: "Hello {{missing}}"
`

func TestScenarioEUnknownTemplateReference(t *testing.T) {
	f := New()
	f.Start()
	cmd := f.OnEvent(model.ConfigLoaded{TagID: 1, Contents: singleStepUnknownTemplateRecipe})
	done, ok := cmd.(model.Done)
	require.True(t, ok, "cmd = %#v, want Done", cmd)
	require.NotNil(t, done.Err)
	require.Equal(t, "value for 'missing' is not available", done.Err.Error())
}

func TestScenarioFDuplicateEvent(t *testing.T) {
	f := New()
	f.Start()
	f.OnEvent(model.ConfigLoaded{TagID: 1, Contents: happyPathRecipe})
	f.OnEvent(model.EnvVarLoaded{TagID: 2, Name: "GOOGLE_DOCS_TOKEN", Value: strPtr("docs-cred")})
	f.OnEvent(model.EnvVarLoaded{TagID: 3, Name: "SHEET_ID", Value: strPtr("sheet-123")})
	f.OnEvent(model.EnvVarLoaded{TagID: 4, Name: "TELEGRAM_BOT_TOKEN", Value: strPtr("tg-token")})
	// tag 5 now outstanding (FetchGoogleSheetCell)
	cmd := f.OnEvent(model.StepCompleted{TagID: 5, Value: strPtr("2024-05-01")})
	_, ok := cmd.(model.Do)
	require.True(t, ok, "first StepCompleted{tag=5} cmd = %#v, want Do", cmd)
	// engine has advanced past tag 5; a duplicate must be ignored
	dup := f.OnEvent(model.StepCompleted{TagID: 5, Value: strPtr("2024-05-01")})
	_, ok = dup.(model.Wait)
	require.True(t, ok, "duplicate StepCompleted{tag=5} cmd = %#v, want Wait", dup)
}

func TestMissingCredentialReference(t *testing.T) {
	f := New()
	recipeText := `
run_every: "1m"
steps:
  - type: telegram
    chat_id: "@channel"
    message: "hi"
    credentials: nonexistent
`
	f.Start()
	cmd := f.OnEvent(model.ConfigLoaded{TagID: 1, Contents: recipeText})
	done, ok := cmd.(model.Done)
	require.True(t, ok, "cmd = %#v, want Done", cmd)
	require.NotNil(t, done.Err)
	require.Equal(t, "credential 'nonexistent' is not defined", done.Err.Error())
}

func TestStepFailedEventTerminatesWithOneBasedIndex(t *testing.T) {
	f := New()
	f.Start()
	f.OnEvent(model.ConfigLoaded{TagID: 1, Contents: `
run_every: "1m"
steps:
  - type: telegram
    chat_id: "@channel"
    message: "hi"
`})
	// tag 2 is the SendTelegramMessage effect (no credentials/env to collect)
	cmd := f.OnEvent(model.StepFailed{TagID: 2, Error: "network unreachable"})
	done, ok := cmd.(model.Done)
	require.True(t, ok, "cmd = %#v, want Done", cmd)
	require.NotNil(t, done.Err)
	require.Equal(t, "step 1 failed: network unreachable", done.Err.Error())
}

func TestVariablesReturnsNilBeforeConfigLoaded(t *testing.T) {
	f := New()
	f.Start()
	require.Nil(t, f.Variables())
}

func TestVariablesCapturesStoredStepOutput(t *testing.T) {
	f := New()
	f.Start()
	f.OnEvent(model.ConfigLoaded{TagID: 1, Contents: happyPathRecipe})
	f.OnEvent(model.EnvVarLoaded{TagID: 2, Name: "GOOGLE_DOCS_TOKEN", Value: strPtr("docs-cred")})
	f.OnEvent(model.EnvVarLoaded{TagID: 3, Name: "SHEET_ID", Value: strPtr("sheet-123")})
	f.OnEvent(model.EnvVarLoaded{TagID: 4, Name: "TELEGRAM_BOT_TOKEN", Value: strPtr("tg-token")})
	f.OnEvent(model.StepCompleted{TagID: 5, Value: strPtr("2024-05-01")})
	require.Equal(t, "2024-05-01", f.Variables()["sheet_value"])
}
