package config

import (
	"context"
	"strconv"
	"time"

	"github.com/oshokin/paper-fetch/internal/logger"
)

// envOverride binds one environment variable to a settings field.
type envOverride struct {
	key   string
	apply func(cfg *Config, value string) error
}

// envOverrides lists every environment variable that may replace a file setting.
//
//nolint:gochecknoglobals // Fixed lookup table.
var envOverrides = []envOverride{
	{
		key: "MINECRAFT_VERSION",
		apply: func(cfg *Config, value string) error {
			cfg.Version = value
			return nil
		},
	},
	{
		key: "WORK_DIR",
		apply: func(cfg *Config, value string) error {
			cfg.WorkDir = value
			return nil
		},
	},
	{
		key: "PAPER_CATALOG_URL",
		apply: func(cfg *Config, value string) error {
			cfg.CatalogURL = value
			return nil
		},
	},
	{
		key: "PAPER_HTTP_TIMEOUT",
		apply: func(cfg *Config, value string) error {
			timeout, err := time.ParseDuration(value)
			if err != nil {
				return err
			}

			cfg.Timeout = timeout

			return nil
		},
	},
	{
		key: "PAPER_AUDIT_DISCOVERED",
		apply: func(cfg *Config, value string) error {
			audit, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}

			cfg.AuditDiscovered = audit

			return nil
		},
	},
	{
		key: "PAPER_LOG_LEVEL",
		apply: func(cfg *Config, value string) error {
			cfg.LogLevel = value
			return nil
		},
	},
	{
		key: "PAPER_RELEASE_REPO",
		apply: func(cfg *Config, value string) error {
			cfg.ReleaseRepo = value
			return nil
		},
	},
}

// EnvKeys returns the environment variables consulted by Load, in application order.
func EnvKeys() []string {
	keys := make([]string, 0, len(envOverrides))
	for _, o := range envOverrides {
		keys = append(keys, o.key)
	}

	return keys
}

// applyEnv overrides cfg from lookup. Empty values are ignored and values
// that fail to parse keep the current setting with a warning.
func applyEnv(ctx context.Context, cfg *Config, lookup func(string) (string, bool)) {
	for _, o := range envOverrides {
		value, ok := lookup(o.key)
		if !ok || value == "" {
			continue
		}

		if err := o.apply(cfg, value); err != nil {
			logger.WarnKV(ctx, "Ignoring invalid environment override",
				"variable", o.key, "value", value, "error", err)

			continue
		}

		logger.DebugKV(ctx, "Applied environment override", "variable", o.key)
	}
}
