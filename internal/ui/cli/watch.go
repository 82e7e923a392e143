package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"xplore/internal/core/watcher"
)

// watch starts watching the inputs that can change under a running server:
// the local workspace directory, the tag feed (when tags.reload is set), a
// tree file and the config file. It returns nil when there is nothing to
// watch.
func (rt *runtime) watch(cfgPath string) (*watcher.Watcher, error) {
	cfg := rt.cfg
	var files []string
	if cfg.Tags.Reload && cfg.Tags.File != "" {
		files = append(files, cfg.Tags.File)
	}
	if cfg.Workspace.TreeFile != "" {
		files = append(files, cfg.Workspace.TreeFile)
	}
	if cfgPath != "" {
		files = append(files, cfgPath)
	}
	if cfg.Workspace.Dir == "" && len(files) == 0 {
		return nil, nil
	}

	w, err := watcher.NewWatcher(cfg.Watch.Debounce, rt.excluder, func(paths []string) {
		rt.onChange(context.Background(), cfgPath, paths)
	})
	if err != nil {
		return nil, err
	}
	if cfg.Workspace.Dir != "" {
		if err := w.WatchTree(cfg.Workspace.Dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	if err := w.WatchFiles(files...); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// onChange dispatches a debounced batch of changed paths.
func (rt *runtime) onChange(ctx context.Context, cfgPath string, paths []string) {
	cfg := rt.cfg
	var reloadTags, rebuildTree bool
	for _, p := range paths {
		switch {
		case cfgPath != "" && p == filepath.Clean(cfgPath):
			slog.Warn("config file changed; restart to apply", "path", p)
		case cfg.Tags.File != "" && p == filepath.Clean(cfg.Tags.File):
			reloadTags = true
		case cfg.Workspace.TreeFile != "" && p == filepath.Clean(cfg.Workspace.TreeFile):
			rebuildTree = true
		case cfg.Workspace.Dir != "":
			rel, ok := workspaceRel(cfg.Workspace.Dir, p)
			if !ok {
				continue
			}
			rt.cache.Invalidate(rel)
			if !rt.ws.Tree().Has(rel) {
				// Created, removed or renamed entries change the tree shape.
				rebuildTree = true
			} else if _, err := os.Stat(p); err != nil {
				rebuildTree = true
			}
		}
	}

	switch {
	case reloadTags:
		stats, err := rt.reload(ctx)
		if err != nil {
			slog.Error("tag reload failed", "error", err)
			return
		}
		slog.Info("tags reloaded", "loaded", stats.Loaded, "dropped", stats.Dropped)
	case rebuildTree:
		if err := rt.reloadTree(ctx); err != nil {
			slog.Error("tree rebuild failed", "error", err)
			return
		}
		slog.Info("workspace tree rebuilt", "files", rt.ws.Tree().Len())
	}
}

// workspaceRel converts an absolute path below dir into the slash-separated
// form used by tags and the tree.
func workspaceRel(dir, p string) (string, bool) {
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
