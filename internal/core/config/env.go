package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PYSHAPE_[SECTION]_[KEY] (e.g., PYSHAPE_RUN_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Root, "PYSHAPE_ROOT")
	setEnvList(&cfg.Options, "PYSHAPE_OPTIONS")

	setEnvInt(&cfg.Run.Workers, "PYSHAPE_RUN_WORKERS")
	setEnvBool(&cfg.Run.Check, "PYSHAPE_RUN_CHECK")

	setEnvDuration(&cfg.Watch.Debounce, "PYSHAPE_WATCH_DEBOUNCE")

	if val, ok := os.LookupEnv("PYSHAPE_CACHE_ENABLED"); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", "PYSHAPE_CACHE_ENABLED", "value", val)
			cfg.Cache.Enabled = &b
		}
	}
	setEnvString(&cfg.Cache.Path, "PYSHAPE_CACHE_PATH")

	setEnvDuration(&cfg.External.Timeout, "PYSHAPE_EXTERNAL_TIMEOUT")
	setEnvFloat64(&cfg.External.MaxPerSecond, "PYSHAPE_EXTERNAL_MAX_PER_SECOND")

	setEnvString(&cfg.Observability.MetricsAddress, "PYSHAPE_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PYSHAPE_OBSERVABILITY_OTLP_ENDPOINT")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits a comma separated value.
func setEnvList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
