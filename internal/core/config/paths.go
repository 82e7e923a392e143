package config

import (
	"path/filepath"
	"strings"
)

// Resolve rewrites relative file paths in cfg against base (normally the
// config file's directory, or Paths.Root when set). URLs are left alone.
func Resolve(cfg *Config, base string) {
	if root := strings.TrimSpace(cfg.Paths.Root); root != "" {
		base = ResolveRelative(base, root)
	}
	cfg.Paths.Root = filepath.Clean(base)
	cfg.Paths.StateDir = ResolveRelative(base, cfg.Paths.StateDir)
	if cfg.Workspace.Dir != "" {
		cfg.Workspace.Dir = ResolveRelative(base, cfg.Workspace.Dir)
	}
	if cfg.Workspace.TreeFile != "" {
		cfg.Workspace.TreeFile = ResolveRelative(base, cfg.Workspace.TreeFile)
	}
	if cfg.Tags.File != "" {
		cfg.Tags.File = ResolveRelative(base, cfg.Tags.File)
	}
	cfg.History.DBPath = ResolveRelative(cfg.Paths.StateDir, cfg.History.DBPath)
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
