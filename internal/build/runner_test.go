package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/pack"
)

func mustWriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%q): %v", path, err)
	}
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", path, err)
	}
	return string(b)
}

// writeSite lays out a small site and returns its project description.
func writeSite(t *testing.T, script string) pack.Project {
	t.Helper()
	dir := t.TempDir()

	mustWriteFile(t, filepath.Join(dir, "app", "index.html"),
		"<!DOCTYPE html><html><head><title>Home</title></head><body><h1>Home</h1></body></html>")
	mustWriteFile(t, filepath.Join(dir, "app", "about.html"),
		"<!DOCTYPE html><html><head><title>About</title></head><body></body></html>")
	mustWriteFile(t, filepath.Join(dir, "app", "assets", "scripts", "scripts.js"), script)
	mustWriteFile(t, filepath.Join(dir, "app", "assets", "styles", "base", "_vars.css"), "$brand: #1d4ed8;\n$shadow: #999;\n")
	mustWriteFile(t, filepath.Join(dir, "app", "assets", "styles", "base", "_mixins.css"),
		"@define-mixin lifted $blur: 4px {\n  box-shadow: 0 1px $blur $shadow;\n}\n")
	mustWriteFile(t, filepath.Join(dir, "app", "assets", "styles", "styles.css"),
		"@import \"base/_vars.css\";\n@import \"base/_mixins.css\";\n.card {\n  color: $brand;\n  @mixin lifted 6px;\n  & .title { font-weight: bold; }\n}\n")
	mustWriteFile(t, filepath.Join(dir, "app", "assets", "images", "logo.png"), "png")
	mustWriteFile(t, filepath.Join(dir, "app", "assets", "images", "icons", "menu.svg"), "<svg/>")

	return pack.Project{
		Fs:         afero.NewOsFs(),
		Logger:     zerolog.Nop(),
		PageDir:    filepath.Join(dir, "app"),
		PageExt:    ".html",
		Entry:      filepath.Join(dir, "app", "assets", "scripts", "scripts.js"),
		Transforms: []string{"import", "simple-vars", "nested", "mixins", "autoprefixer"},
		Browsers:   []string{"chrome58", "firefox57", "safari11", "edge16"},
		Dev: pack.DevLayout{
			Output:   filepath.Join(dir, "app"),
			Filename: "bundled.js",
			Host:     "localhost",
			Port:     8080,
			Hot:      true,
		},
		Build: pack.BuildLayout{
			Output:           filepath.Join(dir, "doc"),
			Filename:         "[name].[hash].js",
			ChunkFilename:    "[name].[hash].js",
			CSSFilename:      "[name].[hash].css",
			CSSChunkFilename: "[name].[hash].css",
			Target:           "es2015",
			Images:           filepath.Join(dir, "app", "assets", "images"),
			ImagesOut:        filepath.Join(dir, "doc", "assets", "images"),
		},
	}
}

const goodScript = `import "../styles/styles.css";
const ready = () => { document.body.dataset.ready = "yes"; };
ready();
`

func TestRunner_Build(t *testing.T) {
	p := writeSite(t, goodScript)
	out := p.Build.Output
	mustWriteFile(t, filepath.Join(out, "stale.js"), "old")

	cfg, err := pack.Assemble(pack.TaskBuild, p)
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(cfg, Options{WorkDir: filepath.Dir(out)})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(out, "stale.js")); !os.IsNotExist(err) {
		t.Error("clean should remove stale output")
	}

	ep := res.Stats.Entrypoints["scripts"]
	if ep == nil || len(ep.Scripts) != 1 || len(ep.Styles) != 1 {
		t.Fatalf("entrypoint = %+v", ep)
	}
	if !strings.HasPrefix(ep.Scripts[0], "scripts.") || !strings.HasSuffix(ep.Scripts[0], ".js") {
		t.Errorf("script = %q, want hashed scripts bundle", ep.Scripts[0])
	}

	css := mustReadFile(t, filepath.Join(out, ep.Styles[0]))
	if !strings.Contains(css, "#1d4ed8") || strings.Contains(css, "$brand") || strings.Contains(css, "&") {
		t.Errorf("stylesheet not transformed:\n%s", css)
	}
	if !strings.Contains(css, "6px") || !strings.Contains(css, "#999") || strings.Contains(css, "mixin") {
		t.Errorf("mixin not expanded:\n%s", css)
	}

	for _, page := range []string{"index.html", "about.html"} {
		html := mustReadFile(t, filepath.Join(out, page))
		if !strings.Contains(html, `<script type="module" src="`+ep.Scripts[0]+`"></script>`) {
			t.Errorf("%s missing script tag:\n%s", page, html)
		}
		if !strings.Contains(html, `<link rel="stylesheet" href="`+ep.Styles[0]+`"/>`) {
			t.Errorf("%s missing stylesheet link:\n%s", page, html)
		}
	}
	if len(res.Emitted) != 2 {
		t.Errorf("emitted = %v, want two pages", res.Emitted)
	}

	if got := mustReadFile(t, filepath.Join(out, "assets", "images", "icons", "menu.svg")); got != "<svg/>" {
		t.Errorf("copied image = %q", got)
	}
	if !strings.Contains(mustReadFile(t, filepath.Join(out, ManifestName)), ep.Scripts[0]) {
		t.Error("manifest does not list the script bundle")
	}
}

func TestRunner_BuildFailureSkipsDoneHooks(t *testing.T) {
	p := writeSite(t, `import "./missing.js";`)

	cfg, err := pack.Assemble(pack.TaskBuild, p)
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(cfg, Options{WorkDir: filepath.Dir(p.Build.Output)})
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected build error")
	}
	if res == nil || !res.Failed() || res.Stats != nil {
		t.Fatalf("result = %+v, want failure without stats", res)
	}
	e, ok := err.(*errors.Error)
	if !ok || e.Code != "E120" {
		t.Fatalf("err = %#v, want E120", err)
	}
	if e.Location == nil || e.Location.File != filepath.Join("app", "assets", "scripts", "scripts.js") || e.Location.Line != 1 || e.Location.Column < 1 {
		t.Errorf("Location = %+v, want scripts.js:1", e.Location)
	}
	if len(e.Context) == 0 || !strings.Contains(e.Context[0], "./missing.js") {
		t.Errorf("Context = %q, want the failing import line", e.Context)
	}
	if !strings.Contains(e.Format(), "scripts.js:1:") {
		t.Errorf("Format() missing location:\n%s", e.Format())
	}
	if _, err := os.Stat(p.Build.ImagesOut); !os.IsNotExist(err) {
		t.Error("images copied after a failed compilation")
	}
	if _, err := os.Stat(filepath.Join(p.Build.Output, "index.html")); !os.IsNotExist(err) {
		t.Error("pages emitted after a failed compilation")
	}
}

type memSink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (s *memSink) Emit(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	return nil
}

func TestRunner_DevInjectsStyles(t *testing.T) {
	p := writeSite(t, goodScript)

	cfg, err := pack.Assemble(pack.TaskDev, p)
	if err != nil {
		t.Fatal(err)
	}
	sink := &memSink{files: map[string][]byte{}}
	r, err := New(cfg, Options{WorkDir: filepath.Dir(p.Dev.Output), Sink: sink})
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	bundle := mustReadFile(t, filepath.Join(p.Dev.Output, "bundled.js"))
	if !strings.Contains(bundle, "data-sitepack") || !strings.Contains(bundle, "#1d4ed8") {
		t.Errorf("bundle should inject the compiled stylesheet:\n%s", bundle)
	}
	if _, err := os.Stat(filepath.Join(p.Dev.Output, "bundled.css")); !os.IsNotExist(err) {
		t.Error("dev should not extract a stylesheet")
	}

	ep := res.Stats.Entrypoints["scripts"]
	if ep == nil || len(ep.Scripts) != 1 || ep.Scripts[0] != "bundled.js" {
		t.Fatalf("entrypoint = %+v", ep)
	}

	page := string(sink.files["index.html"])
	if !strings.Contains(page, `<script src="bundled.js" defer=""></script>`) {
		t.Errorf("page missing bundle tag:\n%s", page)
	}
	if original := mustReadFile(t, filepath.Join(p.PageDir, "index.html")); strings.Contains(original, "bundled.js") {
		t.Error("dev build overwrote the page template")
	}
}

func TestResult_ErrLocation(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "src", "main.js"), "let a = 1;\nlet b = ;\nlet c = 3;\n")

	tests := []struct {
		name    string
		res     *Result
		want    *errors.Location
		context []string
	}{
		{
			name: "reads surrounding lines",
			res: &Result{workDir: dir, Errors: []api.Message{{
				Text:     "Unexpected \";\"",
				Location: &api.Location{File: "src/main.js", Line: 2, Column: 8, LineText: "let b = ;"},
			}}},
			want:    &errors.Location{File: "src/main.js", Line: 2, Column: 9},
			context: []string{"let a = 1;", "let b = ;", "let c = 3;"},
		},
		{
			name: "falls back to esbuild line text",
			res: &Result{workDir: dir, Errors: []api.Message{{
				Text:     "Could not resolve \"x\"",
				Location: &api.Location{File: "src/gone.js", Line: 4, Column: 0, LineText: `import "x";`},
			}}},
			want:    &errors.Location{File: "src/gone.js", Line: 4, Column: 1},
			context: []string{`import "x";`},
		},
		{
			name: "no location",
			res:  &Result{Errors: []api.Message{{Text: "boom"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := tt.res.Err().(*errors.Error)
			if !ok {
				t.Fatalf("Err() = %v, want *errors.Error", tt.res.Err())
			}
			if diff := cmp.Diff(tt.want, e.Location); diff != "" {
				t.Errorf("Location mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.context, e.Context); diff != "" {
				t.Errorf("Context mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
