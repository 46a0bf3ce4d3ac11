package dev

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vango-dev/sitepack/internal/build"
	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/pack"
)

// noCache keeps browsers from holding on to anything the dev server sends.
const noCache = "no-store, no-cache, must-revalidate"

// Builder compiles the site. *build.Runner implements it.
type Builder interface {
	// Watch compiles, then recompiles on input changes until ctx is done,
	// calling onResult after each compilation.
	Watch(ctx context.Context, onResult func(*build.Result)) error

	// Rebuild forces a compilation while Watch is running.
	Rebuild() (*build.Result, error)
}

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the assembled dev configuration.
	Config *pack.Config

	// Logger receives server and build progress.
	Logger zerolog.Logger

	// Build configures the runner the server creates. Its Sink is replaced
	// by the server's page store.
	Build build.Options

	// Builder overrides the runner. Pages it renders must be emitted to
	// Pages().
	Builder Builder

	// Registry collects the dev metrics. Defaults to a fresh registry.
	Registry *prometheus.Registry

	// OnBuildComplete is called after every compilation.
	OnBuildComplete func(result *build.Result)
}

// Server is the development server.
type Server struct {
	config       *pack.Config
	dev          *pack.DevServer
	options      ServerOptions
	log          zerolog.Logger
	builder      Builder
	pages        *PageStore
	watcher      *Watcher
	reloadServer *ReloadServer
	metrics      *metrics
	registry     *prometheus.Registry
	changeCh     chan []Change
	started      chan struct{}
	startOnce    sync.Once
	httpServer   *http.Server
	handler      http.Handler
	mu           sync.Mutex
	running      bool
}

// NewServer creates a new development server.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	if cfg == nil || cfg.DevServer == nil {
		return nil, errors.New("E130").WithDetail("The configuration has no dev server")
	}

	s := &Server{
		config:   cfg,
		dev:      cfg.DevServer,
		options:  options,
		log:      options.Logger,
		pages:    NewPageStore(),
		registry: options.Registry,
		changeCh: make(chan []Change, 16),
		started:  make(chan struct{}),
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	s.builder = options.Builder
	if s.builder == nil {
		opts := options.Build
		opts.Sink = s.pages
		opts.Logger = options.Logger
		runner, err := build.New(cfg, opts)
		if err != nil {
			return nil, err
		}
		s.builder = runner
	}

	watcher, err := NewWatcher(WatcherConfig{
		Patterns: s.dev.Watch,
		Debounce: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	s.watcher = watcher

	if s.dev.Hot {
		s.reloadServer = NewReloadServer()
	}
	s.metrics = newMetrics(s.registry, func() float64 {
		if s.reloadServer == nil {
			return 0
		}
		return float64(s.reloadServer.ClientCount())
	})

	s.handler = s.routes()
	return s, nil
}

// Pages returns the in-memory page store.
func (s *Server) Pages() *PageStore {
	return s.pages
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.dev.Host, strconv.Itoa(s.dev.Port))
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if s.reloadEnabled() {
		r.Get(ReloadPath, s.reloadServer.HandleWebSocket)
	}
	r.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	files := http.FileServer(http.Dir(s.dev.ContentBase))
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if page, ok := s.pages.Get(req.URL.Path); ok && (req.Method == http.MethodGet || req.Method == http.MethodHead) {
			s.servePage(w, page)
			return
		}
		w.Header().Set("Cache-Control", noCache)
		files.ServeHTTP(w, req)
	})
	return r
}

// servePage writes a rendered page, with the reload client when hot reload
// is on.
func (s *Server) servePage(w http.ResponseWriter, page []byte) {
	body := string(page)
	if s.reloadEnabled() {
		body = injectReloadScript(body)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", noCache)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write([]byte(body))
}

// injectReloadScript inserts the dev client before </body>.
func injectReloadScript(body string) string {
	if idx := strings.LastIndex(body, "</body>"); idx != -1 {
		return body[:idx] + DevClientScript + body[idx:]
	}
	if idx := strings.LastIndex(body, "</html>"); idx != -1 {
		return body[:idx] + DevClientScript + body[idx:]
	}
	return body + DevClientScript
}

// Start builds, watches and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.watcher.OnChange(func(changes []Change) {
		select {
		case s.changeCh <- changes:
		default:
		}
	})

	errCh := make(chan error, 3)
	go func() {
		if err := s.watcher.Start(ctx); err != nil && ctx.Err() == nil {
			errCh <- err
		}
	}()
	go s.processChanges(ctx)
	go func() {
		if err := s.builder.Watch(ctx, s.onResult); err != nil {
			errCh <- err
		}
	}()

	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().
		Str("url", "http://"+s.Addr()).
		Str("contentBase", s.dev.ContentBase).
		Bool("hot", s.dev.Hot).
		Msg("dev server running")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.New("E130").Wrap(err)
		}
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop stops the development server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.watcher.Stop()
	if s.reloadServer != nil {
		s.reloadServer.Close()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}
}

// processChanges serializes rebuilds and coalesces bursts of changes.
// Changes that arrive before the first compilation finishes stay queued
// until the builder is watching and can rebuild.
func (s *Server) processChanges(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-s.started:
	}

	for {
		select {
		case <-ctx.Done():
			return
		case changes := <-s.changeCh:
			draining := true
			for draining {
				select {
				case next := <-s.changeCh:
					changes = append(changes, next...)
				default:
					draining = false
				}
			}
			s.handleChanges(changes)
		}
	}
}

// handleChanges rebuilds after watched templates change. The rebuild
// re-renders every page; the result reaches browsers through onResult.
func (s *Server) handleChanges(changes []Change) {
	if len(changes) == 0 {
		return
	}
	for _, change := range changes {
		s.log.Info().Str("path", change.Path).Str("op", change.Op.String()).Msg("changed")
	}
	s.metrics.changes.Add(float64(len(changes)))

	if _, err := s.builder.Rebuild(); err != nil {
		s.log.Warn().Err(err).Msg("rebuild skipped")
	}
}

// onResult reports a finished compilation to the terminal and browsers.
func (s *Server) onResult(res *build.Result) {
	defer s.startOnce.Do(func() { close(s.started) })
	s.metrics.buildDuration.Observe(res.Duration.Seconds())

	if res.Failed() {
		s.metrics.builds.WithLabelValues("failure").Inc()
		s.notifyProblems(Diagnostics(res))
	} else {
		s.metrics.builds.WithLabelValues("success").Inc()
		s.notifyReload()
	}

	if s.options.OnBuildComplete != nil {
		s.options.OnBuildComplete(res)
	}
}

func (s *Server) reloadEnabled() bool {
	return s.dev.Hot && s.reloadServer != nil
}

func (s *Server) notifyReload() {
	if !s.reloadEnabled() {
		return
	}
	s.reloadServer.NotifyReload()
	s.metrics.reloads.Inc()
	s.log.Debug().Int("clients", s.reloadServer.ClientCount()).Msg("reloaded browsers")
}

func (s *Server) notifyProblems(diags []Diagnostic) {
	if !s.reloadEnabled() {
		return
	}
	s.reloadServer.NotifyProblems(diags)
}
