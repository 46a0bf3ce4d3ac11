package pages

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func writeFiles(t *testing.T, fsys afero.Fs, files ...string) {
	t.Helper()
	for _, f := range files {
		if err := afero.WriteFile(fsys, f, []byte("<html></html>"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys,
		"app/index.html",
		"app/about.html",
		"app/notes.txt",
		"app/partials/nav.html",
		"app/assets/scripts/scripts.js",
	)

	got, err := Discover(fsys, "app", ".html")
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}

	want := []Page{
		{Name: "about.html", Path: filepath.Join("app", "about.html")},
		{Name: "index.html", Path: filepath.Join("app", "index.html")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_Empty(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("app", 0755); err != nil {
		t.Fatal(err)
	}

	got, err := Discover(fsys, "app", ".html")
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d pages, want 0", len(got))
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	if _, err := Discover(afero.NewMemMapFs(), "missing", ".html"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestDiscover_OrderIndependent(t *testing.T) {
	names := []string{"c.html", "a.html", "b.html"}

	first := afero.NewMemMapFs()
	second := afero.NewMemMapFs()
	for i := range names {
		writeFiles(t, first, filepath.Join("app", names[i]))
		writeFiles(t, second, filepath.Join("app", names[len(names)-1-i]))
	}

	a, err := Discover(first, "app", ".html")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Discover(second, "app", ".html")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("enumeration order leaked into result (-first +second):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	template := `<!DOCTYPE html>
<html>
<head><title>Home</title></head>
<body><h1>Hello</h1></body>
</html>`

	out, err := Render([]byte(template), Assets{
		Scripts: []string{"scripts.1A2B3C4D.js"},
		Styles:  []string{"scripts.5E6F7A8B.css"},
		Module:  true,
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}

	got := string(out)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Home</title>",
		`<link rel="stylesheet" href="scripts.5E6F7A8B.css"/></head>`,
		`<script type="module" src="scripts.1A2B3C4D.js"></script>`,
		"<h1>Hello</h1>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "<h1>") > strings.Index(got, "<script") {
		t.Error("scripts should come after body content")
	}
}

func TestRender_Classic(t *testing.T) {
	out, err := Render([]byte("<p>bare fragment</p>"), Assets{
		Scripts: []string{"bundled.js"},
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}

	got := string(out)
	if !strings.Contains(got, `<script src="bundled.js" defer=""></script>`) {
		t.Errorf("missing classic script tag:\n%s", got)
	}
	if !strings.Contains(got, "<head>") {
		t.Errorf("parser should synthesize <head>:\n%s", got)
	}
}

func TestRender_Preload(t *testing.T) {
	tmpl := []byte(`<html><head></head><body></body></html>`)

	out, err := Render(tmpl, Assets{
		Scripts: []string{"scripts.1a2b3c4d.js"},
		Preload: []string{"chunk.5e6f7a8b.js"},
		Module:  true,
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !strings.Contains(string(out), `<link rel="modulepreload" href="chunk.5e6f7a8b.js"/></head>`) {
		t.Errorf("preload hint missing from head:\n%s", out)
	}

	classic, err := Render(tmpl, Assets{
		Scripts: []string{"bundled.js"},
		Preload: []string{"chunk.js"},
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if strings.Contains(string(classic), "modulepreload") {
		t.Errorf("classic scripts should not get preload hints:\n%s", classic)
	}
}
