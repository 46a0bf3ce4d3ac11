package build

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/vango-dev/sitepack/internal/config"
	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/pack"
	"github.com/vango-dev/sitepack/internal/styles"
)

// assetLoaders copy files referenced from url() next to the bundle.
var assetLoaders = map[string]api.Loader{
	".png":   api.LoaderFile,
	".jpg":   api.LoaderFile,
	".jpeg":  api.LoaderFile,
	".gif":   api.LoaderFile,
	".svg":   api.LoaderFile,
	".webp":  api.LoaderFile,
	".ico":   api.LoaderFile,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
	".eot":   api.LoaderFile,
}

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var engines = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var engineRe = regexp.MustCompile(`^([a-z]+)(\d+(?:\.\d+)*)$`)

// styleChain is what the style rule asks for.
type styleChain struct {
	inject     bool
	transforms []string
	browsers   []string
}

// translate turns the assembled configuration into esbuild options. Plugins
// are added by the caller.
func translate(cfg *pack.Config, workDir string, sourceMaps bool) (api.BuildOptions, styleChain, error) {
	opts := api.BuildOptions{
		EntryPoints:   []string{cfg.Entry},
		AbsWorkingDir: workDir,
		Bundle:        true,
		Write:         true,
		Metafile:      true,
		LogLevel:      api.LogLevelSilent,
		Platform:      api.PlatformBrowser,
		Loader:        assetLoaders,
		Target:        api.ESNext,
		Sourcemap:     cond(sourceMaps, api.SourceMapLinked, api.SourceMapNone),
	}

	chain, err := readStyleChain(cfg.Rule(pack.RuleStyles))
	if err != nil {
		return opts, chain, err
	}
	for _, t := range chain.transforms {
		switch t {
		case styles.Import, styles.SimpleVars, styles.Mixins:
			// Handled by esbuild's bundler and the source plugin.
		case styles.Nested:
			opts.Supported = map[string]bool{"nesting": false}
		case styles.Autoprefixer:
			e, err := parseEngines(chain.browsers)
			if err != nil {
				return opts, chain, err
			}
			opts.Engines = e
		case styles.Minify:
			opts.MinifyWhitespace = true
			opts.MinifySyntax = true
		default:
			return opts, chain, errors.New("E124").
				WithDetail("Unknown style transform " + `"` + t + `"`).
				WithSuggestion("Supported transforms: import, simple-vars, nested, mixins, autoprefixer, minify")
		}
	}

	if rule := cfg.Rule(pack.RuleScripts); rule != nil {
		for _, step := range rule.Use {
			if step.Loader != pack.LoaderDownlevel {
				return opts, chain, unknownLoader(step.Loader)
			}
			target := config.DefaultTarget
			if step.Options != nil && step.Options.Target != "" {
				target = step.Options.Target
			}
			t, ok := targets[strings.ToLower(target)]
			if !ok {
				return opts, chain, errors.New("E102").
					WithDetail("Unknown script target " + `"` + target + `"`)
			}
			opts.Target = t
		}
	}

	out := cfg.Output
	if cfg.Optimization.Splitting() || strings.Contains(out.Filename, "[") {
		opts.Outdir = out.Path
		opts.EntryNames = namePattern(out.Filename)
		opts.ChunkNames = namePattern(firstNonEmpty(out.ChunkFilename, out.Filename))
		opts.AssetNames = "[name].[hash]"
		opts.Format = api.FormatIIFE
		if cfg.Optimization.Splitting() {
			opts.Format = api.FormatESModule
			opts.Splitting = true
		}
	} else {
		opts.Outfile = filepath.Join(out.Path, out.Filename)
		opts.AssetNames = "[name]"
		opts.Format = api.FormatIIFE
	}

	if cfg.Mode == pack.ModeProduction {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
		opts.TreeShaking = api.TreeShakingTrue
	}

	return opts, chain, nil
}

func readStyleChain(rule *pack.Rule) (styleChain, error) {
	var chain styleChain
	if rule == nil {
		return chain, nil
	}
	for _, step := range rule.Use {
		switch step.Loader {
		case pack.LoaderStyleInject:
			chain.inject = true
		case pack.LoaderStyleExtract, pack.LoaderCSS:
		case pack.LoaderPostCSS:
			if step.Options != nil {
				chain.transforms = step.Options.Transforms
				chain.browsers = step.Options.Browsers
			}
		default:
			return chain, unknownLoader(step.Loader)
		}
	}
	return chain, nil
}

func unknownLoader(l pack.Loader) error {
	return errors.New("E125").WithDetail("Unknown loader " + `"` + string(l) + `"`)
}

// parseEngines turns names like "chrome58" or "safari11.1" into esbuild
// engines.
func parseEngines(browsers []string) ([]api.Engine, error) {
	out := make([]api.Engine, 0, len(browsers))
	for _, b := range browsers {
		m := engineRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(b)))
		if m == nil {
			return nil, errors.New("E102").WithDetail("Cannot parse browser " + `"` + b + `"`)
		}
		name, ok := engines[m[1]]
		if !ok {
			return nil, errors.New("E102").WithDetail("Unknown browser " + `"` + m[1] + `"`)
		}
		out = append(out, api.Engine{Name: name, Version: m[2]})
	}
	return out, nil
}

// namePattern converts an output filename pattern to an esbuild name
// template: the extension is dropped and every hash placeholder becomes
// [hash].
func namePattern(filename string) string {
	p := strings.NewReplacer(
		"[chunkhash]", "[hash]",
		"[contenthash]", "[hash]",
		"[id]", "[name]",
	).Replace(filename)
	if ext := path.Ext(p); !strings.Contains(ext, "[") {
		p = strings.TrimSuffix(p, ext)
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
