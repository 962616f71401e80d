// Package config loads and validates the service configuration: platform
// identity, store backend selection, gateway listener, metrics endpoint and
// the severity threshold table. Configuration comes from a JSON file checked
// against an embedded schema, with environment variable overrides applied
// after the file loads.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xeipuuv/gojsonschema"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/scoring"
)

// Store mode constants
const (
	StoreModeMemory = "memory" // in-process triple store
	StoreModeNATS   = "nats"   // remote graph service over NATS request/reply
)

// Config represents the complete application configuration
type Config struct {
	Platform PlatformConfig `json:"platform"`
	Store    StoreConfig    `json:"store"`
	Gateway  GatewayConfig  `json:"gateway"`
	Metrics  MetricsConfig  `json:"metrics"`
	Scoring  ScoringConfig  `json:"scoring"`
}

// PlatformConfig defines platform identity
type PlatformConfig struct {
	Org       string `json:"org"`                 // organization namespace (e.g. "champtc")
	ID        string `json:"id"`                  // deployment identifier
	Namespace string `json:"namespace,omitempty"` // IRI namespace for generated references
}

// StoreConfig selects and configures the graph backend
type StoreConfig struct {
	Mode string     `json:"mode"`
	NATS NATSConfig `json:"nats,omitempty"`
}

// NATSConfig defines NATS connection settings for the remote store
type NATSConfig struct {
	URL            string        `json:"url,omitempty"`
	Subject        string        `json:"subject,omitempty"`
	MaxReconnects  int           `json:"max_reconnects,omitempty"`
	ReconnectWait  time.Duration `json:"reconnect_wait,omitempty"`
	RequestTimeout time.Duration `json:"request_timeout,omitempty"`
}

// GatewayConfig defines the GraphQL listener
type GatewayConfig struct {
	Listen         string        `json:"listen,omitempty"`
	RequestTimeout time.Duration `json:"request_timeout,omitempty"`
}

// MetricsConfig defines the Prometheus exposition endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Listen  string `json:"listen,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ScoringConfig overrides the severity bucket table
type ScoringConfig struct {
	Thresholds []ThresholdConfig `json:"thresholds,omitempty"`
}

// ThresholdConfig is one severity bucket: scores at or above Min map to Level
type ThresholdConfig struct {
	Level string  `json:"level"`
	Min   float64 `json:"min"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Platform: PlatformConfig{
			Org: "champtc",
			ID:  "local",
		},
		Store: StoreConfig{
			Mode: StoreModeMemory,
			NATS: NATSConfig{
				URL:            "nats://localhost:4222",
				Subject:        "graph.query",
				MaxReconnects:  -1,
				ReconnectWait:  2 * time.Second,
				RequestTimeout: 10 * time.Second,
			},
		},
		Gateway: GatewayConfig{
			Listen:         ":8080",
			RequestTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
			Path:    "/metrics",
		},
	}
}

// Load reads a JSON configuration file, checks it against the embedded
// schema, applies environment overrides, and validates the result. An empty
// path yields the default configuration (still subject to overrides).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s: %v", errors.ErrMissingConfig, path, err),
				"Config", "Load", "file read")
		}
		if err := checkSchema(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"Config", "Load", "json decode")
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkSchema(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"Config", "Load", "schema validation")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(details, "; ")),
			"Config", "Load", "schema validation")
	}
	return nil
}

// applyEnvOverrides lets deployment environments adjust the loaded file
// without editing it. Unparseable values are ignored in favor of the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CYRISK_STORE_MODE"); v != "" {
		cfg.Store.Mode = v
	}
	if v := os.Getenv("CYRISK_NATS_URL"); v != "" {
		cfg.Store.NATS.URL = v
	}
	if v := os.Getenv("CYRISK_NATS_SUBJECT"); v != "" {
		cfg.Store.NATS.Subject = v
	}
	if v := os.Getenv("CYRISK_GATEWAY_LISTEN"); v != "" {
		cfg.Gateway.Listen = v
	}
	if v := os.Getenv("CYRISK_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := os.Getenv("CYRISK_NAMESPACE"); v != "" {
		cfg.Platform.Namespace = v
	}
	if v := os.Getenv("CYRISK_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Platform.Org == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: platform.org is required", errors.ErrInvalidConfig),
			"Config", "Validate", "platform check")
	}
	c.Platform.Org = strings.ToLower(c.Platform.Org)
	if !isValidSubjectPart(c.Platform.Org) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: platform.org %q is not valid for NATS subjects", errors.ErrInvalidConfig, c.Platform.Org),
			"Config", "Validate", "platform check")
	}
	if c.Platform.ID == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: platform.id is required", errors.ErrInvalidConfig),
			"Config", "Validate", "platform check")
	}

	switch c.Store.Mode {
	case StoreModeMemory:
	case StoreModeNATS:
		if c.Store.NATS.URL == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: store.nats.url is required in nats mode", errors.ErrInvalidConfig),
				"Config", "Validate", "store check")
		}
		if c.Store.NATS.Subject == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: store.nats.subject is required in nats mode", errors.ErrInvalidConfig),
				"Config", "Validate", "store check")
		}
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: store.mode %q (want %s or %s)",
				errors.ErrInvalidConfig, c.Store.Mode, StoreModeMemory, StoreModeNATS),
			"Config", "Validate", "store check")
	}

	if _, err := c.Thresholds(); err != nil {
		return err
	}
	return nil
}

// Thresholds converts the configured severity buckets into a scoring table,
// sorted by descending minimum. An empty configuration yields the default
// CVSS v3 scale.
func (c *Config) Thresholds() (scoring.Thresholds, error) {
	if len(c.Scoring.Thresholds) == 0 {
		return scoring.DefaultThresholds(), nil
	}
	out := make(scoring.Thresholds, 0, len(c.Scoring.Thresholds))
	for _, t := range c.Scoring.Thresholds {
		level := scoring.Level(t.Level)
		switch level {
		case scoring.LevelNone, scoring.LevelLow, scoring.LevelModerate,
			scoring.LevelHigh, scoring.LevelCritical:
		default:
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: scoring level %q", errors.ErrInvalidConfig, t.Level),
				"Config", "Thresholds", "level check")
		}
		out = append(out, scoring.Threshold{Level: level, Min: t.Min})
	}
	// highest minimum first so bucketing walks top down
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Min > out[j-1].Min; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// isValidSubjectPart checks if a string is valid for use in NATS subjects.
func isValidSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}
