package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	domainerrors "xplore/internal/core/errors"
)

var (
	defaultExcludeDirs  = []string{".git", "node_modules", "__*"}
	defaultExcludeFiles = []string{"*.out", "*.so", "*.so.1", "*.swa", "*.swp", "*.rej", "*.orig", "*~"}
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeUnavailable, "read config"),
			domainerrors.CtxPath, path,
		)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeValidationError, "decode config"),
			domainerrors.CtxPath, path,
		)
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	Resolve(&cfg, filepath.Dir(path))

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, domainerrors.Wrap(errs[0], domainerrors.CodeValidationError, "invalid config")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = ".xplore"
	}

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = append([]string(nil), defaultExcludeDirs...)
	}
	if cfg.Exclude.Files == nil {
		cfg.Exclude.Files = append([]string(nil), defaultExcludeFiles...)
	}

	if cfg.Search.FileMatches <= 0 {
		cfg.Search.FileMatches = 500
	}
	if cfg.Search.WorkspaceFiles <= 0 {
		cfg.Search.WorkspaceFiles = 200
	}
	if cfg.Search.PerFile <= 0 {
		cfg.Search.PerFile = 20
	}
	if cfg.Search.WorkspaceTotal <= 0 {
		cfg.Search.WorkspaceTotal = 500
	}
	if cfg.Search.Concurrency <= 0 {
		cfg.Search.Concurrency = 10
	}
	if cfg.Search.GrepConcurrency <= 0 {
		cfg.Search.GrepConcurrency = 8
	}

	if cfg.Content.CacheEntries <= 0 {
		cfg.Content.CacheEntries = 256
	}
	if cfg.Content.MaxBytes <= 0 {
		cfg.Content.MaxBytes = 8 << 20
	}
	if cfg.Content.Burst <= 0 {
		cfg.Content.Burst = 10
	}
	if cfg.Content.Timeout <= 0 {
		cfg.Content.Timeout = 15 * time.Second
	}

	if cfg.History.Capacity <= 0 {
		cfg.History.Capacity = 20
	}
	if strings.TrimSpace(cfg.History.DBPath) == "" {
		cfg.History.DBPath = "history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}
	if cfg.History.QueueSize <= 0 {
		cfg.History.QueueSize = 256
	}
	if cfg.History.FlushInterval <= 0 {
		cfg.History.FlushInterval = 200 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Server.Address) == "" {
		cfg.Server.Address = "127.0.0.1:8080"
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 20
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 40
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "xplore"
	}
}
