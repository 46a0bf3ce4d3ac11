package pack

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// fakeCompiler records hooks and fires them the way a runner does: start
// hooks first, done hooks only when the compilation succeeded.
type fakeCompiler struct {
	fs      afero.Fs
	starts  []func() error
	dones   []func(*Stats) error
	emitted map[string][]byte
	extract [2]string
}

func newFakeCompiler(fs afero.Fs) *fakeCompiler {
	return &fakeCompiler{fs: fs, emitted: map[string][]byte{}}
}

func (f *fakeCompiler) Fs() afero.Fs                           { return f.fs }
func (f *fakeCompiler) OnStart(_ string, fn func() error)      { f.starts = append(f.starts, fn) }
func (f *fakeCompiler) OnDone(_ string, fn func(*Stats) error) { f.dones = append(f.dones, fn) }
func (f *fakeCompiler) ExtractStyles(filename, chunk string)   { f.extract = [2]string{filename, chunk} }

func (f *fakeCompiler) Emit(name string, data []byte) error {
	f.emitted[name] = data
	return nil
}

func (f *fakeCompiler) compile(t *testing.T, ok bool, stats *Stats) {
	t.Helper()
	for _, fn := range f.starts {
		if err := fn(); err != nil {
			t.Fatalf("start hook: %v", err)
		}
	}
	if !ok {
		return
	}
	for _, fn := range f.dones {
		if err := fn(stats); err != nil {
			t.Fatalf("done hook: %v", err)
		}
	}
}

func TestPageDirective(t *testing.T) {
	fs := afero.NewMemMapFs()
	tmpl := `<html><head><title>Home</title></head><body><main></main></body></html>`
	if err := afero.WriteFile(fs, "app/index.html", []byte(tmpl), 0644); err != nil {
		t.Fatal(err)
	}

	c := newFakeCompiler(fs)
	(&PageDirective{Filename: "index.html", Template: "app/index.html"}).Apply(c)
	c.compile(t, true, &Stats{
		Module: true,
		Entrypoints: map[string]*Entrypoint{
			"scripts": {
				Scripts: []string{"scripts.AAAA1111.js"},
				Chunks:  []string{"chunk.BBBB2222.js"},
				Styles:  []string{"scripts.CCCC3333.css"},
			},
		},
	})

	got := string(c.emitted["index.html"])
	for _, want := range []string{
		`<script type="module" src="scripts.AAAA1111.js"></script>`,
		`<link rel="stylesheet" href="scripts.CCCC3333.css"/>`,
		`<link rel="modulepreload" href="chunk.BBBB2222.js"/>`,
		"<title>Home</title>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q:\n%s", want, got)
		}
	}
}

func TestPageDirective_MissingTemplate(t *testing.T) {
	c := newFakeCompiler(afero.NewMemMapFs())
	(&PageDirective{Filename: "gone.html", Template: "app/gone.html"}).Apply(c)
	if err := c.dones[0](&Stats{}); err == nil {
		t.Error("expected error for missing template")
	}
}

func TestCleanDirective(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, f := range []string{"doc/old.js", "doc/assets/images/a.png"} {
		if err := afero.WriteFile(fs, f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	c := newFakeCompiler(fs)
	(&CleanDirective{Path: "doc"}).Apply(c)
	c.compile(t, false, nil)

	entries, err := afero.ReadDir(fs, "doc")
	if err != nil {
		t.Fatalf("clean should keep the directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("doc still has %d entries", len(entries))
	}
}

func TestCleanDirective_MissingDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := Clean(fs, "doc"); err != nil {
		t.Fatalf("Clean error: %v", err)
	}
	if ok, _ := afero.DirExists(fs, "doc"); !ok {
		t.Error("Clean should create a missing directory")
	}
}

func TestExtractStyles(t *testing.T) {
	c := newFakeCompiler(afero.NewMemMapFs())
	(&ExtractStyles{Filename: "[name].[hash].css", ChunkFilename: "[id].[hash].css"}).Apply(c)
	if c.extract != [2]string{"[name].[hash].css", "[id].[hash].css"} {
		t.Errorf("extract patterns = %v", c.extract)
	}
}

func TestCopyOnDone(t *testing.T) {
	setup := func(t *testing.T) afero.Fs {
		fs := afero.NewMemMapFs()
		for _, f := range []string{"app/assets/images/logo.png", "app/assets/images/icons/x.svg"} {
			if err := afero.WriteFile(fs, f, []byte(f), 0644); err != nil {
				t.Fatal(err)
			}
		}
		return fs
	}
	plugin := &CopyOnDone{Label: "copy images", From: "app/assets/images", To: "doc/assets/images"}

	t.Run("success", func(t *testing.T) {
		fs := setup(t)
		c := newFakeCompiler(fs)
		plugin.Apply(c)
		if len(c.dones) != 1 {
			t.Fatalf("registered %d done hooks, want 1", len(c.dones))
		}
		c.compile(t, true, &Stats{})

		for _, f := range []string{"logo.png", filepath.Join("icons", "x.svg")} {
			data, err := afero.ReadFile(fs, filepath.Join("doc/assets/images", f))
			if err != nil {
				t.Errorf("%s not copied: %v", f, err)
				continue
			}
			if !strings.HasSuffix(string(data), filepath.ToSlash(f)) {
				t.Errorf("%s content = %q", f, data)
			}
		}
	})

	t.Run("failure", func(t *testing.T) {
		fs := setup(t)
		c := newFakeCompiler(fs)
		plugin.Apply(c)
		c.compile(t, false, nil)

		if ok, _ := afero.Exists(fs, "doc/assets/images"); ok {
			t.Error("images copied after a failed compilation")
		}
	})
}

func TestCopyDir_MissingSource(t *testing.T) {
	if err := CopyDir(afero.NewMemMapFs(), "nope", "doc"); err == nil {
		t.Error("expected error for missing source")
	}
}
