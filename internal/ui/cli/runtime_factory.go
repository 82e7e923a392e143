package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"xplore/internal/core/config"
	domainerrors "xplore/internal/core/errors"
	"xplore/internal/core/ports"
	"xplore/internal/core/session"
	"xplore/internal/data/content"
	"xplore/internal/data/history"
	"xplore/internal/data/queue"
	"xplore/internal/engine/references"
	"xplore/internal/engine/tags"
	"xplore/internal/engine/workspace"
)

// runtime owns everything built from one configuration: the tag store,
// the file tree, the fetcher chain and the session manager.
type runtime struct {
	cfg      *config.Config
	client   *http.Client
	excluder *workspace.Excluder
	tags     *tags.Store
	cache    *content.CachedFetcher
	local    *content.FSFetcher
	history  *history.Store
	writer   *queue.HistoryWriter
	ws       *session.Workspace
	manager  *session.Manager

	reloadMu sync.Mutex
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	excluder, err := workspace.NewExcluder(cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "compile exclude patterns")
	}
	rt := &runtime{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Content.Timeout},
		excluder: excluder,
		tags:     tags.NewStore(),
	}

	fetcher, err := rt.buildFetcher()
	if err != nil {
		return nil, err
	}

	if _, err := rt.loadTags(ctx); err != nil {
		// An empty store still serves file browsing; the next reload may
		// succeed.
		slog.Warn("tag feed not loaded", "error", err)
	}
	tree, err := rt.loadTree(ctx)
	if err != nil {
		// Browsing starts without a tree; a reload or watch event fills it in.
		slog.Warn("file tree not loaded", "error", err)
		tree = workspace.NewTree(nil)
	}

	limits := references.Limits{
		FileMatches:     cfg.Search.FileMatches,
		WorkspaceFiles:  cfg.Search.WorkspaceFiles,
		PerFile:         cfg.Search.PerFile,
		WorkspaceTotal:  cfg.Search.WorkspaceTotal,
		Concurrency:     cfg.Search.Concurrency,
		GrepConcurrency: cfg.Search.GrepConcurrency,
	}
	rt.ws = session.NewWorkspace(rt.tags, tree, fetcher, excluder, limits)

	var store ports.HistoryStore
	if cfg.History.Persist {
		if err := os.MkdirAll(cfg.Paths.StateDir, 0o700); err != nil {
			rt.Close()
			return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "create state directory")
		}
		rt.history, err = history.Open(cfg.History.DBPath, cfg.History.BusyTimeout)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.writer = queue.NewHistoryWriter(rt.history, cfg.History.QueueSize, cfg.History.FlushInterval)
		rt.writer.Start()
		store = rt.writer
	}
	rt.manager = session.NewManager(rt.ws, store, cfg.History.Capacity, cfg.Server.SessionTTL)

	slog.Info("workspace ready", "tags", rt.tags.Len(), "files", tree.Len())
	return rt, nil
}

// buildFetcher layers the content source: local directory or HTTP, then an
// optional rate limit, then the LRU cache.
func (rt *runtime) buildFetcher() (ports.ContentFetcher, error) {
	cfg := rt.cfg
	var base ports.ContentFetcher
	switch {
	case strings.TrimSpace(cfg.Workspace.Dir) != "":
		local, err := content.NewFSFetcher(cfg.Workspace.Dir)
		if err != nil {
			return nil, err
		}
		rt.local = local
		base = local
	case strings.TrimSpace(cfg.Workspace.ContentURL) != "":
		remote := content.NewHTTPFetcher(cfg.Workspace.ContentURL, rt.client)
		remote.MaxBytes = cfg.Content.MaxBytes
		base = remote
		if cfg.Content.RatePerSec > 0 {
			base = content.NewThrottledFetcher(remote, cfg.Content.RatePerSec, cfg.Content.Burst)
		}
	default:
		return nil, domainerrors.New(domainerrors.CodeValidationError, "workspace.dir or workspace.content_url is required")
	}

	cache, err := content.NewCachedFetcher(base, cfg.Content.CacheEntries)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.cache = cache
	return cache, nil
}

func (rt *runtime) loadTags(ctx context.Context) (tags.LoadStats, error) {
	var (
		stats tags.LoadStats
		err   error
	)
	switch {
	case rt.cfg.Tags.File != "":
		stats, err = rt.tags.LoadFile(rt.cfg.Tags.File)
	case rt.cfg.Tags.URL != "":
		stats, err = rt.tags.LoadURL(ctx, rt.client, rt.cfg.Tags.URL)
	default:
		return stats, domainerrors.New(domainerrors.CodeNotFound, "no tag feed configured")
	}
	if err != nil {
		return stats, err
	}
	slog.Debug("tag feed loaded", "loaded", stats.Loaded, "dropped", stats.Dropped, "files", stats.Files)
	return stats, nil
}

// loadTree reads the published tree when one is configured, otherwise
// walks the local workspace directory.
func (rt *runtime) loadTree(ctx context.Context) (*workspace.Tree, error) {
	cfg := rt.cfg
	switch {
	case cfg.Workspace.TreeFile != "":
		return workspace.LoadFile(cfg.Workspace.TreeFile)
	case cfg.Workspace.TreeURL != "":
		return workspace.LoadURL(ctx, rt.client, cfg.Workspace.TreeURL)
	case cfg.Workspace.Dir != "":
		nodes, err := workspace.BuildFromFS(os.DirFS(cfg.Workspace.Dir), rt.excluder)
		if err != nil {
			return nil, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeUnavailable, "walk workspace"),
				domainerrors.CtxPath, cfg.Workspace.Dir,
			)
		}
		return workspace.NewTree(nodes), nil
	default:
		return workspace.NewTree(nil), nil
	}
}

// reload refreshes the tag store and the tree and drops cached contents.
// A failed tag load keeps the previous snapshot.
func (rt *runtime) reload(ctx context.Context) (tags.LoadStats, error) {
	rt.reloadMu.Lock()
	defer rt.reloadMu.Unlock()

	stats, err := rt.loadTags(ctx)
	if err != nil {
		return stats, err
	}
	if err := rt.reloadTreeLocked(ctx); err != nil {
		return stats, err
	}
	rt.cache.Purge()
	return stats, nil
}

func (rt *runtime) reloadTree(ctx context.Context) error {
	rt.reloadMu.Lock()
	defer rt.reloadMu.Unlock()
	return rt.reloadTreeLocked(ctx)
}

func (rt *runtime) reloadTreeLocked(ctx context.Context) error {
	tree, err := rt.loadTree(ctx)
	if err != nil {
		return err
	}
	rt.ws.SetTree(tree)
	return nil
}

func (rt *runtime) Close() {
	if rt.writer != nil {
		_ = rt.writer.Close()
	}
	if rt.history != nil {
		if err := rt.history.Close(); err != nil {
			slog.Warn("failed to close history store", "error", err)
		}
	}
	if rt.local != nil {
		_ = rt.local.Close()
	}
}
