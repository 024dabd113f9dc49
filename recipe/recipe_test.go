package recipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/remindctl/remind/model"
)

const sampleRecipe = `
run_every: 15m
credentials:
  bot_token:
    env: TELEGRAM_BOT_TOKEN
  api_key:
    value: static-key
steps:
  - type: google_sheet
    sheet_id:
      env: SHEET_ID
    worksheet: Sheet1
    cell:
      row: 2
      column: 3
    store_as: balance
    credentials: api_key
  - type: email
    account:
      value: "{{env_account}}"
    field: subject
    regex: "Invoice #{{balance}}"
    store_as: invoice_subject
  - type: telegram
    chat_id:
      var: invoice_subject
    message: "Balance is {{balance}}"
    credentials: bot_token
`

func TestParseSampleRecipe(t *testing.T) {
	cfg, err := Parse(sampleRecipe)
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cfg.RunEvery)
	require.Len(t, cfg.Steps, 3)

	sheet, ok := cfg.Steps[0].(model.GoogleSheetStep)
	require.True(t, ok, "Steps[0] = %T, want GoogleSheetStep", cfg.Steps[0])
	_, ok = sheet.SheetID.(model.EnvRef)
	require.True(t, ok, "SheetID = %T, want EnvRef", sheet.SheetID)
	require.Equal(t, uint32(2), sheet.Cell.Row)
	require.Equal(t, uint32(3), sheet.Cell.Column)
	require.Equal(t, "balance", sheet.StoreAs)

	email, ok := cfg.Steps[1].(model.EmailStep)
	require.True(t, ok, "Steps[1] = %T, want EmailStep", cfg.Steps[1])
	require.Equal(t, model.EmailFieldSubject, email.Field)

	tg, ok := cfg.Steps[2].(model.TelegramStep)
	require.True(t, ok, "Steps[2] = %T, want TelegramStep", cfg.Steps[2])
	_, ok = tg.ChatID.(model.VariableRef)
	require.True(t, ok, "ChatID = %T, want VariableRef", tg.ChatID)
}

func TestEnvRequestsFromParsedRecipe(t *testing.T) {
	cfg, err := Parse(sampleRecipe)
	require.NoError(t, err)
	require.Equal(t, []string{"SHEET_ID", "TELEGRAM_BOT_TOKEN"}, cfg.EnvRequests())
}

func TestParseInvalidRunEvery(t *testing.T) {
	_, err := Parse("run_every: not-a-duration\nsteps: []\n")
	require.Error(t, err)
	require.Equal(t, "invalid configuration: invalid run_every value", err.Error())
}

func TestParseCredentialBothValueAndEnv(t *testing.T) {
	yaml := `
run_every: 1m
credentials:
  bad:
    value: x
    env: Y
steps: []
`
	_, err := Parse(yaml)
	require.Error(t, err)
}

func TestParseUnknownStepType(t *testing.T) {
	yaml := `
run_every: 1m
steps:
  - type: slack
`
	_, err := Parse(yaml)
	require.Error(t, err)
}

func TestParseValueRefMultipleSources(t *testing.T) {
	yaml := `
run_every: 1m
steps:
  - type: telegram
    chat_id:
      value: a
      env: B
    message: hi
`
	_, err := Parse(yaml)
	require.Error(t, err)
}

func TestParseValueRefRejectsUnknownField(t *testing.T) {
	yaml := `
run_every: 1m
steps:
  - type: telegram
    chat_id:
      value: a
      foo: bar
    message: hi
`
	_, err := Parse(yaml)
	require.Error(t, err)
}

func TestParseCredentialRejectsUnknownField(t *testing.T) {
	yaml := `
run_every: 1m
credentials:
  bad:
    value: x
    foo: bar
steps: []
`
	_, err := Parse(yaml)
	require.Error(t, err)
}
