package templater

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderPrecedence(t *testing.T) {
	variables := map[string]string{"name": "var-value"}
	credentials := map[string]string{"name": "cred-value", "token": "secret-token"}
	env := map[string]string{"name": "env-value", "home": "/root"}

	got, err := Render("hello {{name}}, token={{token}}, home={{home}}", variables, credentials, env)
	require.NoError(t, err)
	require.Equal(t, "hello var-value, token=secret-token, home=/root", got)
}

func TestRenderNoPlaceholders(t *testing.T) {
	got, err := Render("plain text", nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "plain text", got)
}

func TestRenderMissingVariable(t *testing.T) {
	_, err := Render("{{missing}}", nil, nil, nil)
	require.Error(t, err)
	require.Equal(t, "value for 'missing' is not available", err.Error())
}

func TestRenderEmptyPlaceholder(t *testing.T) {
	_, err := Render("{{  }}", nil, nil, nil)
	require.Error(t, err)
	require.Equal(t, "template error: empty placeholder in template", err.Error())
}

func TestRenderUnclosedPlaceholder(t *testing.T) {
	_, err := Render("hello {{name", nil, nil, nil)
	require.Error(t, err)
	require.Equal(t, "template error: unclosed placeholder in template", err.Error())
}

func TestRenderMultiplePlaceholdersLeftToRight(t *testing.T) {
	variables := map[string]string{"a": "1", "b": "2"}
	got, err := Render("{{a}}-{{b}}-{{a}}", variables, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "1-2-1", got)
}
