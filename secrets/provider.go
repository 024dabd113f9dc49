// Package secrets hydrates process environment variables from a
// configured backend before the daemon lets any engine.Flow observe a
// ReadEnvVar effect. The engine itself never talks to a secrets
// backend directly — it only ever sees os.LookupEnv results, so
// hydration has to happen earlier, during daemon startup.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/remindctl/remind/config"
)

// Provider looks up one named secret from a backend.
type Provider interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Type() string
}

// New builds a Provider from daemon config. A nil cfg or the "env"
// driver returns a Provider that never overrides anything already in
// the process environment. Without a prefix Hydrate is a no-op for
// it, letting the host's own environment answer ReadEnvVar directly;
// with a prefix, Hydrate copies prefix+name into name for names not
// already set.
func New(ctx context.Context, cfg *config.SecretsConfig) (Provider, error) {
	if cfg == nil {
		return &envProvider{}, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "", "env":
		return &envProvider{prefix: cfg.Prefix}, nil
	case "aws-secrets-manager", "aws-sm", "aws":
		if cfg.Region == "" {
			return nil, fmt.Errorf("region is required for aws-secrets-manager driver")
		}
		return newAWSProvider(ctx, cfg.Region, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unsupported secrets driver: %s", cfg.Driver)
	}
}

// Hydrate sets any of names not already present in the process
// environment from provider, skipping names the provider doesn't
// have rather than failing the whole batch — a flow that doesn't
// need the missing one can still run; one that does will get the
// usual "environment variable '%s' is required" error later from the
// engine itself.
func Hydrate(ctx context.Context, provider Provider, names []string) error {
	for _, name := range names {
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		value, found, err := provider.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to hydrate %q from %s: %w", name, provider.Type(), err)
		}
		if !found {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("failed to set %q: %w", name, err)
		}
	}
	return nil
}

// envProvider is the passthrough backend: it answers a name from the
// prefixed variable when a prefix is set and present, else from the
// variable itself. Without a prefix, Hydrate never has anything left
// to do for it.
type envProvider struct {
	prefix string
}

func (e *envProvider) Type() string { return "env" }

func (e *envProvider) Get(_ context.Context, name string) (string, bool, error) {
	if e.prefix != "" {
		if v, ok := os.LookupEnv(e.prefix + name); ok {
			return v, true, nil
		}
	}
	v, ok := os.LookupEnv(name)
	return v, ok, nil
}
