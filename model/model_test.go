package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvRequestsSortedAndDeduplicated(t *testing.T) {
	cfg := &FlowConfig{
		Credentials: map[string]CredentialSource{
			"bot_token": CredentialEnvVar{Name: "ZEBRA_TOKEN"},
		},
		Steps: []Step{
			TelegramStep{
				ChatID:  EnvRef{Name: "ALPHA_CHAT"},
				Message: Literal{Template: "hi"},
			},
			EmailStep{
				Account: EnvRef{Name: "ALPHA_CHAT"}, // duplicate on purpose
				Field:   EmailFieldSubject,
				Regex:   Literal{Template: "x"},
			},
		},
	}

	require.Equal(t, []string{"ALPHA_CHAT", "ZEBRA_TOKEN"}, cfg.EnvRequests())
}

func TestEnvRequestsIgnoresNonEnvSources(t *testing.T) {
	cfg := &FlowConfig{
		Credentials: map[string]CredentialSource{
			"literal": CredentialValue{Value: "secret"},
		},
		Steps: []Step{
			TelegramStep{
				ChatID:  VariableRef{Name: "from_earlier_step"},
				Message: CredentialRef{Name: "literal"},
			},
		},
	}
	require.Empty(t, cfg.EnvRequests())
}
