package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: XPLORE_[SECTION]_[KEY] (e.g., XPLORE_SERVER_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	// Workspace
	setEnvString(&cfg.Workspace.Dir, "XPLORE_WORKSPACE_DIR")
	setEnvString(&cfg.Workspace.TreeFile, "XPLORE_WORKSPACE_TREE_FILE")
	setEnvString(&cfg.Workspace.TreeURL, "XPLORE_WORKSPACE_TREE_URL")
	setEnvString(&cfg.Workspace.ContentURL, "XPLORE_WORKSPACE_CONTENT_URL")

	// Tags
	setEnvString(&cfg.Tags.File, "XPLORE_TAGS_FILE")
	setEnvString(&cfg.Tags.URL, "XPLORE_TAGS_URL")
	setEnvBool(&cfg.Tags.Reload, "XPLORE_TAGS_RELOAD")

	// Search
	setEnvInt(&cfg.Search.Concurrency, "XPLORE_SEARCH_CONCURRENCY")
	setEnvInt(&cfg.Search.WorkspaceFiles, "XPLORE_SEARCH_WORKSPACE_FILES")

	// Content
	setEnvInt(&cfg.Content.CacheEntries, "XPLORE_CONTENT_CACHE_ENTRIES")
	setEnvFloat64(&cfg.Content.RatePerSec, "XPLORE_CONTENT_RATE_PER_SECOND")
	setEnvDuration(&cfg.Content.Timeout, "XPLORE_CONTENT_TIMEOUT")

	// History
	setEnvInt(&cfg.History.Capacity, "XPLORE_HISTORY_CAPACITY")
	setEnvBool(&cfg.History.Persist, "XPLORE_HISTORY_PERSIST")
	setEnvString(&cfg.History.DBPath, "XPLORE_HISTORY_DB_PATH")

	// Server
	setEnvString(&cfg.Server.Address, "XPLORE_SERVER_ADDRESS")
	setEnvFloat64(&cfg.Server.RateLimit, "XPLORE_SERVER_RATE_LIMIT")
	setEnvInt(&cfg.Server.RateBurst, "XPLORE_SERVER_RATE_BURST")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "XPLORE_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(&cfg.Observability.Metrics, "XPLORE_OBSERVABILITY_METRICS")
	setEnvBool(&cfg.Observability.Tracing, "XPLORE_OBSERVABILITY_TRACING")
	setEnvString(&cfg.Observability.Endpoint, "XPLORE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvFloat64(&cfg.Observability.SampleRatio, "XPLORE_OBSERVABILITY_SAMPLE_RATIO")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
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
