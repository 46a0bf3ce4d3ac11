package build

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/styles"
)

const styleNamespace = "sitepack-style"

// resolving marks resolve calls made by the inject plugin itself.
type resolving struct{}

// sourcePlugin applies the source-level transforms of the chain to every
// stylesheet esbuild loads: mixins first, so their parameters are bound
// before $name variables expand. When @import comes first in the chain,
// local imports are inlined beforehand so definitions in imported files are
// visible to the importer.
func sourcePlugin(fsys afero.Fs, transforms []string) api.Plugin {
	inline := importsFirst(transforms)
	mixins := styles.Has(transforms, styles.Mixins)
	vars := styles.Has(transforms, styles.SimpleVars)

	return api.Plugin{
		Name: "sitepack-styles",
		Setup: func(b api.PluginBuild) {
			b.OnLoad(api.OnLoadOptions{Filter: `\.css$`, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				var (
					src   string
					files = []string{args.Path}
				)
				if inline {
					var err error
					src, files, err = styles.InlineImports(fsys, args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
				} else {
					data, err := afero.ReadFile(fsys, args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					src = string(data)
				}

				var err error
				if mixins {
					src, err = styles.ExpandMixins(src)
				}
				if err == nil && vars {
					src, err = styles.ExpandVars(src)
				}
				if err != nil {
					return api.OnLoadResult{
						Errors:     []api.Message{{Text: err.Error(), Location: &api.Location{File: args.Path}}},
						WatchFiles: files,
					}, nil
				}
				dir := filepath.Dir(args.Path)
				return api.OnLoadResult{
					Contents:   &src,
					ResolveDir: dir,
					Loader:     api.LoaderCSS,
					WatchFiles: files,
				}, nil
			})
		},
	}
}

// hasSourceTransforms reports whether the chain needs sourcePlugin.
func hasSourceTransforms(transforms []string) bool {
	return styles.Has(transforms, styles.SimpleVars) || styles.Has(transforms, styles.Mixins)
}

// injectPlugin compiles stylesheets imported from scripts on their own and
// replaces them with a module that installs the CSS in a <style> element.
// css holds the options for the nested stylesheet build.
func injectPlugin(fsys afero.Fs, css api.BuildOptions) api.Plugin {
	return api.Plugin{
		Name: "sitepack-style-inject",
		Setup: func(b api.PluginBuild) {
			b.OnResolve(api.OnResolveOptions{Filter: `\.css$`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.PluginData == (resolving{}) {
					return api.OnResolveResult{}, nil
				}
				if args.Kind != api.ResolveJSImportStatement && args.Kind != api.ResolveJSRequireCall {
					return api.OnResolveResult{}, nil
				}
				res := b.Resolve(args.Path, api.ResolveOptions{
					Importer:   args.Importer,
					ResolveDir: args.ResolveDir,
					Kind:       args.Kind,
					PluginData: resolving{},
				})
				if len(res.Errors) > 0 {
					return api.OnResolveResult{Errors: res.Errors}, nil
				}
				return api.OnResolveResult{Path: res.Path, Namespace: styleNamespace}, nil
			})

			b.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: styleNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				opts := css
				opts.EntryPoints = []string{args.Path}
				result := api.Build(opts)
				watch := metafileInputs(result.Metafile, opts.AbsWorkingDir)
				if len(result.Errors) > 0 {
					return api.OnLoadResult{Errors: result.Errors, WatchFiles: watch}, nil
				}

				var compiled string
				for _, f := range result.OutputFiles {
					if strings.HasSuffix(f.Path, ".css") {
						compiled = string(f.Contents)
						continue
					}
					// Files referenced from url() still land next to the bundle.
					if err := writeFile(fsys, f.Path, f.Contents); err != nil {
						return api.OnLoadResult{}, err
					}
				}

				js := styles.InjectModule(filepath.ToSlash(args.Path), compiled)
				dir := filepath.Dir(args.Path)
				return api.OnLoadResult{
					Contents:   &js,
					ResolveDir: dir,
					Loader:     api.LoaderJS,
					WatchFiles: watch,
				}, nil
			})
		},
	}
}

// metafileInputs lists the input files of a build as absolute paths.
func metafileInputs(metafile, workDir string) []string {
	var meta struct {
		Inputs map[string]json.RawMessage `json:"inputs"`
	}
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil
	}
	files := make([]string, 0, len(meta.Inputs))
	for in := range meta.Inputs {
		if strings.Contains(in, ":") && !filepath.IsAbs(in) {
			// Namespaced inputs such as "sitepack-style:..." are virtual.
			continue
		}
		if !filepath.IsAbs(in) {
			in = filepath.Join(workDir, in)
		}
		files = append(files, in)
	}
	return files
}

func writeFile(fsys afero.Fs, name string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, name, data, 0644)
}
