package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateWorkspace(cfg *Config) error {
	ws := cfg.Workspace
	if strings.TrimSpace(ws.Dir) != "" && strings.TrimSpace(ws.ContentURL) != "" {
		return fmt.Errorf("workspace.dir and workspace.content_url are mutually exclusive")
	}
	if ws.TreeFile != "" && ws.TreeURL != "" {
		return fmt.Errorf("workspace.tree_file and workspace.tree_url are mutually exclusive")
	}
	for key, raw := range map[string]string{"workspace.tree_url": ws.TreeURL, "workspace.content_url": ws.ContentURL} {
		if err := validateHTTPURL(key, raw); err != nil {
			return err
		}
	}
	return nil
}

func validateTags(cfg *Config) error {
	if cfg.Tags.File != "" && cfg.Tags.URL != "" {
		return fmt.Errorf("tags.file and tags.url are mutually exclusive")
	}
	if cfg.Tags.Reload && cfg.Tags.File == "" {
		return fmt.Errorf("tags.reload requires tags.file")
	}
	return validateHTTPURL("tags.url", cfg.Tags.URL)
}

func validateHTTPURL(key, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", key, raw)
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, p := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("exclude.dirs[%d] %q: %w", i, p, err)
		}
	}
	for i, p := range cfg.Exclude.Files {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("exclude.files[%d] %q: %w", i, p, err)
		}
	}
	return nil
}

func validateSearch(cfg *Config) error {
	s := cfg.Search
	if s.PerFile > s.WorkspaceTotal {
		return fmt.Errorf("search.per_file (%d) must not exceed search.workspace_total (%d)", s.PerFile, s.WorkspaceTotal)
	}
	if s.Concurrency > 64 || s.GrepConcurrency > 64 {
		return fmt.Errorf("search concurrency must be <= 64")
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Capacity > 1000 {
		return fmt.Errorf("history.capacity must be <= 1000, got %d", cfg.History.Capacity)
	}
	if cfg.History.Persist && strings.TrimSpace(cfg.History.DBPath) == "" {
		return fmt.Errorf("history.db_path must not be empty when history.persist=true")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	o := cfg.Observability
	if o.SampleRatio < 0 || o.SampleRatio > 1 {
		return fmt.Errorf("observability.sample_ratio must be within [0,1], got %v", o.SampleRatio)
	}
	if o.Tracing && strings.TrimSpace(o.Endpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when observability.tracing=true")
	}
	return nil
}

// Validate returns every problem found in cfg, not just the first.
func Validate(cfg *Config) []error {
	var errs []error

	for _, check := range []func(*Config) error{
		validateVersion,
		validateWorkspace,
		validateTags,
		validateExclude,
		validateSearch,
		validateHistory,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, validatePaths(cfg)...)
	return errs
}

func validatePaths(cfg *Config) []error {
	var errs []error

	if dir := cfg.Workspace.Dir; dir != "" {
		stat, err := os.Stat(dir)
		if os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("workspace.dir %q does not exist", dir))
		} else if err == nil && !stat.IsDir() {
			errs = append(errs, fmt.Errorf("workspace.dir %q is not a directory", dir))
		}
	}
	if f := cfg.Tags.File; f != "" {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("tags.file %q does not exist", f))
		}
	}
	return errs
}
