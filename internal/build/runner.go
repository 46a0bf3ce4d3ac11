package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/pack"
	"github.com/vango-dev/sitepack/internal/styles"
)

const tracerName = "github.com/vango-dev/sitepack/internal/build"

// Sink receives pages and other files emitted by plugins.
type Sink interface {
	Emit(name string, data []byte) error
}

// Options configures a Runner.
type Options struct {
	// Fs is where plugins read templates and write files. Defaults to the
	// OS filesystem; esbuild itself always writes to disk.
	Fs afero.Fs

	// Logger receives build progress.
	Logger zerolog.Logger

	// Sink receives emitted files. When nil they are written into the
	// output directory.
	Sink Sink

	// WorkDir resolves relative paths. Defaults to the working directory.
	WorkDir string

	// SourceMaps writes linked source maps.
	SourceMaps bool

	// Tracer records a span per compilation. Defaults to the global
	// provider.
	Tracer trace.Tracer
}

// Result is the outcome of one compilation.
type Result struct {
	// Stats is nil when the compilation failed.
	Stats *pack.Stats

	// Errors and Warnings are esbuild's diagnostics.
	Errors   []api.Message
	Warnings []api.Message

	// HookErrors are errors returned by plugin hooks.
	HookErrors []error

	// Emitted lists files written through Emit, relative to the output
	// directory.
	Emitted []string

	Duration time.Duration

	workDir string
}

// Failed reports whether the compilation or any hook failed.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0 || len(r.HookErrors) > 0
}

// Err returns the compilation failure as an *errors.Error, or nil.
func (r *Result) Err() error {
	if len(r.Errors) > 0 {
		e := errors.New("E120").WithDetail(FormatMessages(r.Errors, api.ErrorMessage))
		if loc := r.Errors[0].Location; loc != nil && loc.File != "" {
			// esbuild columns are zero-based; the terminal format is not.
			e.WithLocation(resolve(r.workDir, loc.File), loc.Line, loc.Column+1)
			e.Location.File = loc.File
			if len(e.Context) == 0 && loc.LineText != "" {
				e.WithContext([]string{loc.LineText})
			}
		}
		return e
	}
	if len(r.HookErrors) > 0 {
		return errors.FromError(r.HookErrors[0], "E123")
	}
	return nil
}

// FormatMessages renders esbuild diagnostics the way esbuild prints them.
func FormatMessages(msgs []api.Message, kind api.MessageKind) string {
	return strings.TrimSpace(strings.Join(api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind}), "\n"))
}

type startHook struct {
	name string
	fn   func() error
}

type doneHook struct {
	name string
	fn   func(*pack.Stats) error
}

// Runner compiles an assembled configuration with esbuild. It implements
// pack.Compiler: plugins register their hooks in New and the runner fires
// them around every compilation.
type Runner struct {
	cfg     *pack.Config
	fs      afero.Fs
	log     zerolog.Logger
	sink    Sink
	tracer  trace.Tracer
	workDir string
	outDir  string
	build   api.BuildOptions

	starts    []startHook
	dones     []doneHook
	styleName string
	hashed    bool

	mu       sync.Mutex
	ctx      api.BuildContext
	baseCtx  context.Context
	span     trace.Span
	began    time.Time
	emitted  []string
	last     *Result
	onResult func(*Result)
}

// New prepares a runner for cfg. Plugins are applied immediately; nothing is
// compiled until Run or Watch.
func New(cfg *pack.Config, opts Options) (*Runner, error) {
	if cfg.Output == nil {
		return nil, errors.New("E121").
			WithSuggestion("Run with SITEPACK_TASK=dev or SITEPACK_TASK=build")
	}

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts.WorkDir = wd
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	r := &Runner{
		cfg:     cfg,
		fs:      opts.Fs,
		log:     opts.Logger,
		sink:    opts.Sink,
		tracer:  opts.Tracer,
		workDir: opts.WorkDir,
		outDir:  resolve(opts.WorkDir, cfg.Output.Path),
		baseCtx: context.Background(),
	}

	for _, p := range cfg.Plugins {
		p.Apply(r)
	}

	build, chain, err := translate(cfg, opts.WorkDir, opts.SourceMaps)
	if err != nil {
		return nil, err
	}
	r.hashed = build.Outdir != ""

	plugins := []api.Plugin{r.lifecycle()}
	if hasSourceTransforms(chain.transforms) {
		plugins = append(plugins, sourcePlugin(r.fs, chain.transforms))
	}
	if chain.inject {
		css := build
		css.Outfile = ""
		css.Outdir = r.outDir
		css.EntryNames = "[name]"
		css.Write = false
		css.Splitting = false
		css.Format = api.FormatDefault
		css.Sourcemap = api.SourceMapNone
		css.Plugins = nil
		if hasSourceTransforms(chain.transforms) {
			css.Plugins = []api.Plugin{sourcePlugin(r.fs, chain.transforms)}
		}
		plugins = append(plugins, injectPlugin(r.fs, css))
	}
	build.Plugins = plugins
	r.build = build

	return r, nil
}

// importsFirst reports whether @import is inlined before variables or
// mixins expand.
func importsFirst(transforms []string) bool {
	for _, t := range transforms {
		switch t {
		case styles.Import:
			return true
		case styles.SimpleVars, styles.Mixins:
			return false
		}
	}
	return false
}

// BuildOptions returns the translated esbuild options.
func (r *Runner) BuildOptions() api.BuildOptions {
	return r.build
}

// OutDir returns the absolute output directory.
func (r *Runner) OutDir() string {
	return r.outDir
}

// Fs implements pack.Compiler.
func (r *Runner) Fs() afero.Fs {
	return r.fs
}

// OnStart implements pack.Compiler.
func (r *Runner) OnStart(name string, fn func() error) {
	r.starts = append(r.starts, startHook{name: name, fn: fn})
}

// OnDone implements pack.Compiler.
func (r *Runner) OnDone(name string, fn func(*pack.Stats) error) {
	r.dones = append(r.dones, doneHook{name: name, fn: fn})
}

// ExtractStyles implements pack.Compiler. esbuild writes one stylesheet per
// entry, so only filename applies.
func (r *Runner) ExtractStyles(filename, _ string) {
	r.styleName = filename
}

// Emit implements pack.Compiler.
func (r *Runner) Emit(name string, data []byte) error {
	r.mu.Lock()
	r.emitted = append(r.emitted, filepath.ToSlash(name))
	r.mu.Unlock()

	if r.sink != nil {
		return r.sink.Emit(name, data)
	}
	if err := writeFile(r.fs, filepath.Join(r.outDir, name), data); err != nil {
		return errors.New("E123").Wrap(err)
	}
	return nil
}

// Run compiles once.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	bctx, cerr := api.Context(r.build)
	if cerr != nil {
		return nil, errors.New("E120").WithDetail(FormatMessages(cerr.Errors, api.ErrorMessage))
	}
	defer bctx.Dispose()

	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()

	stop := context.AfterFunc(ctx, bctx.Cancel)
	defer stop()

	result := bctx.Rebuild()

	res := r.Last()
	if res == nil {
		// esbuild stopped before the end hooks ran.
		res = &Result{Errors: result.Errors, Warnings: result.Warnings, workDir: r.workDir}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, res.Err()
}

// Watch compiles and then recompiles whenever an input changes, calling
// onResult after each compilation, until ctx is done.
func (r *Runner) Watch(ctx context.Context, onResult func(*Result)) error {
	bctx, cerr := api.Context(r.build)
	if cerr != nil {
		return errors.New("E120").WithDetail(FormatMessages(cerr.Errors, api.ErrorMessage))
	}
	defer bctx.Dispose()

	r.mu.Lock()
	r.ctx = bctx
	r.baseCtx = ctx
	r.onResult = onResult
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.ctx = nil
		r.onResult = nil
		r.mu.Unlock()
	}()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return errors.New("E131").Wrap(err)
	}

	<-ctx.Done()
	return nil
}

// Rebuild forces a compilation while Watch is running and returns its
// result.
func (r *Runner) Rebuild() (*Result, error) {
	r.mu.Lock()
	bctx := r.ctx
	r.mu.Unlock()
	if bctx == nil {
		return nil, errors.Newf(errors.CategoryBuild, "rebuild requested while not watching")
	}
	result := bctx.Rebuild()
	if res := r.Last(); res != nil {
		return res, nil
	}
	return &Result{Errors: result.Errors, Warnings: result.Warnings, workDir: r.workDir}, nil
}

// Last returns the most recent result.
func (r *Runner) Last() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// lifecycle fires the plugin hooks around every esbuild compilation.
func (r *Runner) lifecycle() api.Plugin {
	return api.Plugin{
		Name: "sitepack-lifecycle",
		Setup: func(b api.PluginBuild) {
			b.OnStart(func() (api.OnStartResult, error) {
				r.begin()
				for _, h := range r.starts {
					if err := h.fn(); err != nil {
						return api.OnStartResult{Errors: []api.Message{hookMessage(h.name, err)}}, nil
					}
				}
				return api.OnStartResult{}, nil
			})
			b.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				res := r.finish(result)
				var msgs []api.Message
				for _, err := range res.HookErrors {
					msgs = append(msgs, hookMessage("done", err))
				}
				return api.OnEndResult{Errors: msgs}, nil
			})
		},
	}
}

func (r *Runner) begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, r.span = r.tracer.Start(r.baseCtx, "sitepack.compile",
		trace.WithAttributes(
			attribute.String("sitepack.mode", string(r.cfg.Mode)),
			attribute.String("sitepack.entry", r.cfg.Entry),
		))
	r.began = time.Now()
	r.emitted = nil
	r.last = nil
	r.log.Debug().Str("entry", r.cfg.Entry).Msg("compilation started")
}

// finish turns an esbuild result into a Result and runs the done hooks when
// the compilation succeeded.
func (r *Runner) finish(result *api.BuildResult) *Result {
	res := &Result{
		Errors:   result.Errors,
		Warnings: result.Warnings,
		workDir:  r.workDir,
	}

	if len(result.Errors) == 0 {
		if err := r.complete(res, result.Metafile); err != nil {
			res.HookErrors = append(res.HookErrors, err)
		}
	}

	r.mu.Lock()
	res.Duration = time.Since(r.began)
	res.Emitted = append([]string(nil), r.emitted...)
	if res.Stats != nil {
		res.Stats.Duration = res.Duration
	}
	span := r.span
	onResult := r.onResult
	r.last = res
	r.mu.Unlock()

	if span != nil {
		span.SetAttributes(
			attribute.Int("sitepack.errors", len(res.Errors)+len(res.HookErrors)),
			attribute.Int("sitepack.warnings", len(res.Warnings)),
		)
		if err := res.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "compilation failed")
		}
		span.End()
	}

	for _, w := range res.Warnings {
		r.log.Warn().Msg(FormatMessages([]api.Message{w}, api.WarningMessage))
	}
	if res.Failed() {
		r.log.Error().
			Int("errors", len(res.Errors)+len(res.HookErrors)).
			Dur("duration", res.Duration).
			Msg("compilation failed")
	} else {
		r.log.Info().
			Int("files", len(res.Stats.Files)).
			Int("emitted", len(res.Emitted)).
			Dur("duration", res.Duration).
			Msg("compilation finished")
	}

	if onResult != nil {
		onResult(res)
	}
	return res
}

// complete collects stats, applies style naming, writes the manifest and
// runs the done hooks in order. The first failing hook stops the rest.
func (r *Runner) complete(res *Result, metafile string) error {
	stats, err := collectStats(metafile, r.workDir, r.outDir, r.build.Format == api.FormatESModule)
	if err != nil {
		return err
	}
	if r.styleName != "" && namePattern(r.styleName) != r.build.EntryNames {
		if err := renameStyles(r.fs, stats, r.styleName); err != nil {
			return err
		}
	}
	if r.hashed {
		if err := writeManifest(r.fs, stats); err != nil {
			return err
		}
	}
	res.Stats = stats

	for _, h := range r.dones {
		if err := h.fn(stats); err != nil {
			r.log.Error().Err(err).Str("hook", h.name).Msg("done hook failed")
			return err
		}
	}
	return nil
}

func hookMessage(name string, err error) api.Message {
	return api.Message{PluginName: "sitepack", Text: name + ": " + err.Error(), Detail: err}
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
