// Package templater resolves {{name}} placeholders in a literal
// value against three scopes, in precedence order: run variables,
// resolved credentials, then loaded environment variables.
//
// This is deliberately not built on text/template: the grammar here
// is a single, non-recursive left-to-right scan with bare {{name}}
// placeholders (no dotted paths, no pipelines), and it must produce
// the exact "empty placeholder"/"unclosed placeholder"/missing-value
// error text a correlated test suite checks for. text/template's
// parser, delimiters, and error strings don't match that contract.
package templater

import (
	"strings"

	"github.com/remindctl/remind/flowerr"
)

// Render expands every {{name}} placeholder in template, looking
// each name up first in variables, then credentials, then env. An
// empty placeholder ("{{}}" or "{{   }}") or an unclosed "{{" is a
// template error; a placeholder whose name isn't found in any scope
// is a missing-variable error.
func Render(template string, variables, credentials, env map[string]string) (string, error) {
	var out strings.Builder
	remainder := template

	for {
		start := strings.Index(remainder, "{{")
		if start < 0 {
			out.WriteString(remainder)
			return out.String(), nil
		}
		out.WriteString(remainder[:start])
		afterBrace := remainder[start+2:]

		end := strings.Index(afterBrace, "}}")
		if end < 0 {
			return "", flowerr.NewInvalidTemplate("unclosed placeholder in template")
		}

		placeholder := strings.TrimSpace(afterBrace[:end])
		if placeholder == "" {
			return "", flowerr.NewInvalidTemplate("empty placeholder in template")
		}

		replacement, ok := lookup(placeholder, variables, credentials, env)
		if !ok {
			return "", flowerr.NewMissingVariable(placeholder)
		}
		out.WriteString(replacement)

		remainder = afterBrace[end+2:]
	}
}

func lookup(name string, variables, credentials, env map[string]string) (string, bool) {
	if v, ok := variables[name]; ok {
		return v, true
	}
	if v, ok := credentials[name]; ok {
		return v, true
	}
	if v, ok := env[name]; ok {
		return v, true
	}
	return "", false
}
