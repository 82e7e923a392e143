package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"xplore/internal/core/config"
	domainerrors "xplore/internal/core/errors"
	"xplore/internal/shared/observability"
	"xplore/internal/shared/util"
	"xplore/internal/ui/api"
)

// historyRetention bounds how long persisted session history is kept.
const historyRetention = 30 * 24 * time.Hour

func Run(args []string) int {
	opts, err := parseOptions(args, os.Stderr)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Printf("xplore v%s\n", versionString)
		return 0
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if err := applyOverrides(opts, cfg, cwd); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.Tracing,
		Endpoint:    cfg.Observability.Endpoint,
		Insecure:    cfg.Observability.Insecure,
		SampleRatio: cfg.Observability.SampleRatio,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize workspace", "error", err)
		return 1
	}
	defer rt.Close()

	name, operands := opts.command()
	if name == "serve" {
		if err := serve(ctx, rt, cfgPath); err != nil {
			slog.Error("server failed", "error", err)
			return 1
		}
		return 0
	}

	q := &query{rt: rt, opts: opts, out: os.Stdout}
	if err := q.run(ctx, name, operands); err != nil {
		if errors.Is(err, errNoResult) {
			return 1
		}
		fmt.Fprintln(os.Stderr, errorLine(err))
		return 1
	}
	return 0
}

// loadConfig reads path. A missing file at the default location is not an
// error: defaults resolved against cwd are used instead.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, path)
	}
	cfg, err := config.Load(abs)
	if err == nil {
		return cfg, abs, nil
	}
	if path != defaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
		return nil, "", err
	}
	slog.Debug("no config file, using defaults", "path", path)
	cfg = config.Default()
	config.ApplyEnvOverrides(cfg)
	config.Resolve(cfg, cwd)
	return cfg, "", nil
}

// applyOverrides folds command-line paths into cfg and validates the result.
func applyOverrides(opts cliOptions, cfg *config.Config, cwd string) error {
	if dir := strings.TrimSpace(opts.workspace); dir != "" {
		cfg.Workspace.Dir = config.ResolveRelative(cwd, dir)
		cfg.Workspace.ContentURL = ""
	}
	if file := strings.TrimSpace(opts.tagsFile); file != "" {
		cfg.Tags.File = config.ResolveRelative(cwd, file)
		cfg.Tags.URL = ""
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return domainerrors.Wrap(errors.Join(errs...), domainerrors.CodeValidationError, "invalid configuration")
	}
	return nil
}

func serve(ctx context.Context, rt *runtime, cfgPath string) error {
	cfg := rt.cfg
	if rt.history != nil {
		removed, err := rt.history.Prune(ctx, time.Now().Add(-historyRetention))
		if err != nil {
			slog.Warn("failed to prune session history", "error", err)
		} else if removed > 0 {
			slog.Info("pruned session history", "sessions", removed)
		}
	}

	w, err := rt.watch(cfgPath)
	if err != nil {
		slog.Warn("file watching disabled", "error", err)
	} else if w != nil {
		defer w.Close()
		go w.Run(ctx)
	}

	go rt.manager.Run(ctx, time.Minute)

	server := api.NewServer(rt.manager, rt.reload, api.Options{
		Address:      cfg.Server.Address,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Version:      versionString,
		Metrics:      cfg.Observability.Metrics,
	})
	slog.Info("serving", "address", cfg.Server.Address, "tags", rt.tags.Len())
	return server.Start(ctx)
}

func errorLine(err error) string {
	code := domainerrors.CodeOf(err)
	var de *domainerrors.DomainError
	if errors.As(err, &de) && len(de.Context) > 0 {
		parts := make([]string, 0, len(de.Context))
		for _, k := range util.SortedStringKeys(de.Context) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, de.Context[k]))
		}
		return fmt.Sprintf("error [%s]: %v (%s)", code, err, strings.Join(parts, " "))
	}
	return fmt.Sprintf("error [%s]: %v", code, err)
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	var output io.Writer = os.Stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "xplore", "xplore.log")
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "xplore", "xplore.log")
	}
	return "xplore.log"
}
