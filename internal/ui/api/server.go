// Package api exposes navigation requests over HTTP/JSON. Each request is
// bound to a browsing session selected by the X-Session-ID header.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xplore/internal/core/session"
	"xplore/internal/engine/tags"
	"xplore/internal/shared/observability"
	"xplore/internal/shared/util"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "X-Session-ID"

// Options configures the listener and per-client admission.
type Options struct {
	Address      string
	RateLimit    float64
	RateBurst    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
	// Metrics serves the Prometheus registry on /metrics.
	Metrics bool
}

// ReloadFunc reloads the tag feed and the file tree.
type ReloadFunc func(ctx context.Context) (tags.LoadStats, error)

type Server struct {
	opts    Options
	manager *session.Manager
	reload  ReloadFunc
	limiter *util.LimiterRegistry
	doc     *openapi3.T
	started time.Time
	server  *http.Server
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// NewServer builds the API over manager. reload may be nil, in which case
// the reload endpoint reports NOT_SUPPORTED.
func NewServer(manager *session.Manager, reload ReloadFunc, opts Options) *Server {
	s := &Server{
		opts:    opts,
		manager: manager,
		reload:  reload,
		doc:     Document(opts.Version, opts.Metrics),
		started: time.Now(),
	}
	if opts.RateLimit > 0 {
		s.limiter = util.NewLimiterRegistry(opts.RateLimit, opts.RateBurst, 10*time.Minute)
	}
	return s
}

// Handler returns the routed handler. It is usable without Start, which
// is how the tests drive it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, rt := range routes {
		handle := rt.handle
		h := s.withSession(func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
			handle(s, w, r, sess)
		})
		mux.Handle(rt.method+" "+rt.path, s.limit(h))
	}
	if s.opts.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.doc)
	})
	return mux
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.opts.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("api server listening", "addr", s.opts.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Stop() error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.limiter.Get(util.GetClientIP(r))
		if !l.Allow(1) {
			observability.RateLimitedTotal.Inc()
			wait := int(l.RetryAfter().Seconds() + 0.999)
			if wait < 1 {
				wait = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
				Code:    "RATE_LIMITED",
				Message: "rate limit exceeded",
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withSession(h sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, created := s.manager.Get(r.Context(), r.Header.Get(SessionHeader))
		if created {
			slog.Debug("session started", "session", sess.ID(), "client", util.GetClientIP(r))
		}
		w.Header().Set(SessionHeader, sess.ID())
		h(w, r, sess)
	})
}

// persist saves history after a navigation. Failures are logged only; the
// in-memory session stays authoritative.
func (s *Server) persist(ctx context.Context, sess *session.Session) {
	if err := s.manager.Persist(ctx, sess); err != nil {
		slog.Warn("failed to persist session history", "session", sess.ID(), "error", err)
	}
}

type healthStatus struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Uptime     string         `json:"uptime"`
	Components map[string]any `json:"components"`
}

// handleHealth reports "degraded" with 503 while no tags are loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws := s.manager.Workspace()
	status := healthStatus{
		Status:    "up",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Components: map[string]any{
			"tags":          ws.Tags.Len(),
			"files":         ws.Tree().Len(),
			"sessions":      s.manager.Len(),
			"heap_alloc_mb": util.GetHeapAllocMB(),
		},
	}
	code := http.StatusOK
	if ws.Tags.Len() == 0 {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
