package pack

import (
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/config"
	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/pages"
	"github.com/vango-dev/sitepack/internal/styles"
)

// Project is the input to Assemble: the fixed project layout and the
// variant settings. Paths are absolute or relative to the working directory.
type Project struct {
	// Fs is the filesystem the page directory is read from.
	Fs afero.Fs

	// Logger receives the unsupported-task warning.
	Logger zerolog.Logger

	// PageDir is the page template directory.
	PageDir string

	// PageExt is the page template suffix, including the dot.
	PageExt string

	// Entry is the script entry point.
	Entry string

	// Transforms is the ordered style transform list.
	Transforms []string

	// Browsers are the prefixing engines.
	Browsers []string

	Dev   DevLayout
	Build BuildLayout
}

// DevLayout holds the dev task settings.
type DevLayout struct {
	Output   string
	Filename string
	Host     string
	Port     int
	Hot      bool
	Watch    []string
}

// BuildLayout holds the build task settings.
type BuildLayout struct {
	Output           string
	Filename         string
	ChunkFilename    string
	CSSFilename      string
	CSSChunkFilename string
	Target           string
	Images           string
	ImagesOut        string
}

// ProjectFromConfig resolves a project file into a Project on the OS
// filesystem.
func ProjectFromConfig(cfg *config.Config, logger zerolog.Logger) Project {
	return Project{
		Fs:         afero.NewOsFs(),
		Logger:     logger,
		PageDir:    cfg.SourcePath(),
		PageExt:    cfg.PageExt,
		Entry:      cfg.EntryPath(),
		Transforms: cfg.Styles.Transforms,
		Browsers:   cfg.Styles.Browsers,
		Dev: DevLayout{
			Output:   cfg.DevOutputPath(),
			Filename: cfg.Dev.Filename,
			Host:     cfg.Dev.Host,
			Port:     cfg.Dev.Port,
			Hot:      cfg.HotReload(),
			Watch:    cfg.WatchPatterns(),
		},
		Build: BuildLayout{
			Output:           cfg.PublishPath(),
			Filename:         cfg.Build.Filename,
			ChunkFilename:    cfg.Build.ChunkFilename,
			CSSFilename:      cfg.Build.CSSFilename,
			CSSChunkFilename: cfg.Build.CSSChunkFilename,
			Target:           cfg.Build.Target,
			Images:           cfg.ImagesPath(),
			ImagesOut:        cfg.ImagesOutPath(),
		},
	}
}

// Assemble builds the configuration for task. The page directory is read
// exactly once, at assembly time; pages added later are not picked up.
func Assemble(task Task, p Project) (*Config, error) {
	found, err := pages.Discover(p.Fs, p.PageDir, p.PageExt)
	if err != nil {
		return nil, errors.New("E110").
			Wrap(err).
			WithDetail("Cannot list page templates in " + p.PageDir).
			WithSuggestion("Create the page directory or set \"source\" in the project file")
	}

	plugins := make(Plugins, 0, len(found)+3)
	for _, page := range found {
		plugins = append(plugins, &PageDirective{Filename: page.Name, Template: page.Path})
	}

	// Both tasks edit this rule in place.
	styleRule := &Rule{
		Name: RuleStyles,
		Test: ".css",
		Use: []Step{
			{Loader: LoaderCSS},
			{Loader: LoaderPostCSS, Options: &StepOptions{
				Transforms: append([]string(nil), p.Transforms...),
				Browsers:   append([]string(nil), p.Browsers...),
			}},
		},
	}

	cfg := &Config{
		Entry:   p.Entry,
		Module:  Module{Rules: []*Rule{styleRule}},
		Plugins: plugins,
	}

	switch task {
	case TaskDev:
		styleRule.Prepend(Step{Loader: LoaderStyleInject})
		cfg.Output = &Output{
			Path:     p.Dev.Output,
			Filename: p.Dev.Filename,
		}
		cfg.DevServer = &DevServer{
			ContentBase: p.PageDir,
			Host:        p.Dev.Host,
			Port:        p.Dev.Port,
			Hot:         p.Dev.Hot,
			Watch:       append([]string(nil), p.Dev.Watch...),
		}
		cfg.Mode = ModeDevelopment

	case TaskBuild:
		styleRule.Prepend(Step{Loader: LoaderStyleExtract})
		post := styleRule.Step(LoaderPostCSS)
		post.Options.Transforms = append(post.Options.Transforms, styles.Minify)

		cfg.Module.Rules = append(cfg.Module.Rules, &Rule{
			Name:    RuleScripts,
			Test:    ".js",
			Exclude: []string{"node_modules"},
			Use: []Step{
				{Loader: LoaderDownlevel, Options: &StepOptions{Target: p.Build.Target}},
			},
		})
		cfg.Output = &Output{
			Path:          p.Build.Output,
			Filename:      p.Build.Filename,
			ChunkFilename: p.Build.ChunkFilename,
		}
		cfg.Mode = ModeProduction
		cfg.Optimization = &Optimization{SplitChunks: SplitChunks{Chunks: "all"}}
		cfg.Plugins = append(cfg.Plugins,
			&CleanDirective{Path: p.Build.Output},
			&ExtractStyles{Filename: p.Build.CSSFilename, ChunkFilename: p.Build.CSSChunkFilename},
			&CopyOnDone{Label: "copy images", From: p.Build.Images, To: p.Build.ImagesOut},
		)

	default:
		p.Logger.Warn().
			Str("task", task.String()).
			Msg("unsupported task, returning base configuration without output")
	}

	return cfg, nil
}
