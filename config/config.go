// Package config loads and validates the daemon's own JSON config —
// distinct from a reminder recipe, which package recipe parses. This
// file tells the daemon which recipes to drive and how to wire its
// ambient stack (history, archive, transport, secrets, http, cron,
// tracing); the recipes tell each engine.Flow what to do.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// daemonConfigSchema is a string literal rather than a go:embed'd
// file, so the schema always ships with the binary regardless of how
// it's built or vendored.
const daemonConfigSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["workflows"],
  "properties": {
    "workflows": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "history": {
      "type": "object",
      "properties": {"driver": {"type": "string"}, "dsn": {"type": "string"}}
    },
    "archive": {
      "type": "object",
      "properties": {"driver": {"type": "string"}, "bucket": {"type": "string"}, "directory": {"type": "string"}}
    },
    "transport": {
      "type": "object",
      "properties": {"driver": {"type": "string"}, "url": {"type": "string"}}
    },
    "secrets": {
      "type": "object",
      "properties": {"driver": {"type": "string"}, "region": {"type": "string"}, "prefix": {"type": "string"}}
    },
    "http": {
      "type": "object",
      "properties": {"host": {"type": "string"}, "port": {"type": "integer"}}
    },
    "cron": {
      "type": "object",
      "properties": {"mode": {"type": "string"}}
    },
    "tracing": {
      "type": "object",
      "properties": {"exporter": {"type": "string"}, "endpoint": {"type": "string"}, "serviceName": {"type": "string"}}
    }
  }
}`

type Config struct {
	Workflows []string         `json:"workflows"`
	History   *HistoryConfig   `json:"history,omitempty"`
	Archive   *ArchiveConfig   `json:"archive,omitempty"`
	Transport *TransportConfig `json:"transport,omitempty"`
	Secrets   *SecretsConfig   `json:"secrets,omitempty"`
	HTTP      *HTTPConfig      `json:"http,omitempty"`
	Cron      *CronConfig      `json:"cron,omitempty"`
	Tracing   *TracingConfig   `json:"tracing,omitempty"`
}

type HistoryConfig struct {
	Driver string `json:"driver,omitempty"` // "sqlite" (default), "postgres"
	DSN    string `json:"dsn,omitempty"`
}

type ArchiveConfig struct {
	Driver    string `json:"driver,omitempty"` // "filesystem" (default), "s3", "none"
	Bucket    string `json:"bucket,omitempty"`
	Directory string `json:"directory,omitempty"`
}

// TransportConfig configures the pub/sub bus available for moving
// effects and events across a process boundary, for an operator
// running a performer (e.g. the IMAP poller) out-of-process. The
// in-process daemon does not route through this by default.
//
// Supported drivers: "memory" (default, in-process), "nats".
// transport.New rejects unknown drivers; the daemon does not build a
// bus from this config, so its driver is not checked at startup.
type TransportConfig struct {
	Driver string `json:"driver,omitempty"`
	URL    string `json:"url,omitempty"`
}

type SecretsConfig struct {
	Driver string `json:"driver,omitempty"` // "env" (default), "aws-secrets-manager"
	Region string `json:"region,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

type HTTPConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// CronConfig picks how StartTimer effects are realized.
// Mode "timer" (default) blocks the workflow's goroutine in
// adapter.TimerPerformer until the interval elapses.
// Mode "system" syncs an OS crontab entry per workflow instead.
type CronConfig struct {
	Mode string `json:"mode,omitempty"`
}

type TracingConfig struct {
	Exporter    string `json:"exporter,omitempty"` // "stdout" (default), "otlp", "none"
	Endpoint    string `json:"endpoint,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
}

// Validate checks the config JSON against the embedded schema.
func Validate(raw []byte) error {
	schema, err := jsonschema.CompileString("remind-daemon-config.schema.json", daemonConfigSchema)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

// Load reads, validates, and parses the daemon config at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.History == nil {
		c.History = &HistoryConfig{}
	}
	if c.History.Driver == "" {
		c.History.Driver = "sqlite"
	}
	if c.History.DSN == "" {
		c.History.DSN = DefaultSQLiteDSN
	}
	if c.Archive == nil {
		c.Archive = &ArchiveConfig{Driver: "filesystem", Directory: DefaultArchiveDir}
	}
	if c.Transport == nil {
		c.Transport = &TransportConfig{Driver: "memory"}
	}
	if c.Secrets == nil {
		c.Secrets = &SecretsConfig{Driver: "env"}
	}
	if c.HTTP == nil {
		c.HTTP = &HTTPConfig{Host: "127.0.0.1", Port: 8089}
	}
	if c.Cron == nil {
		c.Cron = &CronConfig{Mode: "timer"}
	}
	if c.Tracing == nil {
		c.Tracing = &TracingConfig{Exporter: "stdout", ServiceName: "remind"}
	}
}
