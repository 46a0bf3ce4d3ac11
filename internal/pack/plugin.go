package pack

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/pages"
)

// Plugin hooks into a compilation. Apply registers hooks with the compiler;
// the work happens when the compiler fires them.
type Plugin interface {
	// Name identifies the plugin kind.
	Name() string

	// Apply registers the plugin's hooks.
	Apply(c Compiler)
}

// Compiler is the surface a runner offers to plugins.
type Compiler interface {
	// Fs is the filesystem bundles and pages are written to.
	Fs() afero.Fs

	// OnStart registers fn to run before every compilation. An error aborts
	// the compilation.
	OnStart(name string, fn func() error)

	// OnDone registers fn to run after every compilation that finished
	// without errors. Hooks run in registration order.
	OnDone(name string, fn func(*Stats) error)

	// ExtractStyles writes stylesheets to files named by the patterns.
	ExtractStyles(filename, chunkFilename string)

	// Emit writes a generated file relative to the output directory.
	Emit(name string, data []byte) error
}

// Stats describes a finished compilation.
type Stats struct {
	// OutDir is the output directory.
	OutDir string

	// Entrypoints maps entry names to their output files.
	Entrypoints map[string]*Entrypoint

	// Files lists every written file relative to OutDir, slash separated.
	Files []string

	// Module reports whether scripts are ES modules.
	Module bool

	// Duration is the compilation wall time.
	Duration time.Duration
}

// Entrypoint lists the output files belonging to one entry, relative to the
// output directory and slash separated.
type Entrypoint struct {
	// Scripts are the entry bundles.
	Scripts []string

	// Chunks are shared chunks the entry imports.
	Chunks []string

	// Styles are stylesheets extracted for the entry.
	Styles []string
}

// Assets collects the tags to inject into a page, entries sorted by name.
func (s *Stats) Assets() pages.Assets {
	names := make([]string, 0, len(s.Entrypoints))
	for name := range s.Entrypoints {
		names = append(names, name)
	}
	sort.Strings(names)

	assets := pages.Assets{Module: s.Module}
	for _, name := range names {
		ep := s.Entrypoints[name]
		assets.Scripts = append(assets.Scripts, ep.Scripts...)
		assets.Preload = append(assets.Preload, ep.Chunks...)
		assets.Styles = append(assets.Styles, ep.Styles...)
	}
	return assets
}

// PageDirective emits one page: the template with the bundle tags injected.
type PageDirective struct {
	// Filename is the emitted file name.
	Filename string `json:"filename"`

	// Template is the source template path.
	Template string `json:"template"`
}

func (p *PageDirective) Name() string { return "page" }

func (p *PageDirective) Apply(c Compiler) {
	c.OnDone("page "+p.Filename, func(stats *Stats) error {
		tmpl, err := afero.ReadFile(c.Fs(), p.Template)
		if err != nil {
			return errors.New("E112").Wrap(err).WithDetail("Template " + p.Template)
		}
		out, err := pages.Render(tmpl, stats.Assets())
		if err != nil {
			return errors.New("E112").Wrap(err).WithDetail("Template " + p.Template)
		}
		return c.Emit(p.Filename, out)
	})
}

// CleanDirective empties the output directory before each compilation.
type CleanDirective struct {
	Path string `json:"path"`
}

func (p *CleanDirective) Name() string { return "clean" }

func (p *CleanDirective) Apply(c Compiler) {
	c.OnStart("clean", func() error {
		return Clean(c.Fs(), p.Path)
	})
}

// ExtractStyles writes stylesheets to their own hashed files instead of
// bundling them into scripts.
type ExtractStyles struct {
	Filename      string `json:"filename"`
	ChunkFilename string `json:"chunkFilename"`
}

func (p *ExtractStyles) Name() string { return "extract-styles" }

func (p *ExtractStyles) Apply(c Compiler) {
	c.ExtractStyles(p.Filename, p.ChunkFilename)
}

// CopyOnDone copies a directory tree after each successful compilation.
type CopyOnDone struct {
	Label string `json:"label"`
	From  string `json:"from"`
	To    string `json:"to"`
}

func (p *CopyOnDone) Name() string { return "copy-on-done" }

func (p *CopyOnDone) Apply(c Compiler) {
	c.OnDone(p.Label, func(*Stats) error {
		return CopyDir(c.Fs(), p.From, p.To)
	})
}

// Clean removes everything inside dir. The directory itself is kept, and a
// missing directory is created.
func Clean(fsys afero.Fs, dir string) error {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil && !os.IsNotExist(err) {
		return errors.New("E114").Wrap(err).WithDetail("Cannot read " + dir)
	}
	for _, entry := range entries {
		if err := fsys.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return errors.New("E114").Wrap(err)
		}
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return errors.New("E114").Wrap(err)
	}
	return nil
}

// CopyDir copies the tree at src into dst, creating directories as needed
// and overwriting existing files.
func CopyDir(fsys afero.Fs, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return errors.New("E113").Wrap(err).WithDetail("Cannot read " + src)
	}
	if !info.IsDir() {
		return errors.New("E113").WithDetail(src + " is not a directory")
	}

	err = afero.Walk(fsys, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fsys.MkdirAll(target, 0755)
		}
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		return afero.WriteFile(fsys, target, data, info.Mode().Perm())
	})
	if err != nil {
		return errors.New("E113").Wrap(err).WithDetail("Copying " + src + " to " + dst)
	}
	return nil
}
