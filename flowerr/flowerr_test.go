package flowerr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{NewConfigLoad("file not found"), "failed to load configuration: file not found"},
		{NewInvalidConfig("invalid run_every value"), "invalid configuration: invalid run_every value"},
		{NewMissingEnvVar("SHEETS_TOKEN"), "environment variable 'SHEETS_TOKEN' is required"},
		{NewMissingCredential("bot"), "credential 'bot' is not defined"},
		{NewMissingVariable("balance"), "value for 'balance' is not available"},
		{NewInvalidTemplate("unclosed placeholder in template"), "template error: unclosed placeholder in template"},
		{NewStepFailure(0, "timed out"), "step 1 failed: timed out"},
		{NewStepFailure(2, "not found"), "step 3 failed: not found"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.err.Error())
	}
}
