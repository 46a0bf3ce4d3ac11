package pack

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/errors"
)

func testProject(t *testing.T, pages ...string) Project {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, p := range pages {
		if err := afero.WriteFile(fsys, filepath.Join("app", p), []byte("<html></html>"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return Project{
		Fs:         fsys,
		Logger:     zerolog.Nop(),
		PageDir:    "app",
		PageExt:    ".html",
		Entry:      "app/assets/scripts/scripts.js",
		Transforms: []string{"import", "simple-vars", "nested", "autoprefixer"},
		Browsers:   []string{"chrome58"},
		Dev: DevLayout{
			Output:   "app",
			Filename: "bundled.js",
			Host:     "localhost",
			Port:     8080,
			Hot:      true,
			Watch:    []string{"app/**/*.html"},
		},
		Build: BuildLayout{
			Output:           "doc",
			Filename:         "[name].[hash].js",
			ChunkFilename:    "[name].[hash].js",
			CSSFilename:      "[name].[hash].css",
			CSSChunkFilename: "[name].[hash].css",
			Target:           "es2015",
			Images:           "app/assets/images",
			ImagesOut:        "doc/assets/images",
		},
	}
}

func TestParseTask(t *testing.T) {
	tests := []struct {
		in   string
		want Task
	}{
		{"dev", TaskDev},
		{"build", TaskBuild},
		{"", TaskUnsupported},
		{"Dev", TaskUnsupported},
		{"build ", TaskUnsupported},
		{"test", TaskUnsupported},
	}
	for _, tt := range tests {
		if got := ParseTask(tt.in); got != tt.want {
			t.Errorf("ParseTask(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTaskFromEnv(t *testing.T) {
	env := map[string]string{NPMTaskEnv: "build"}
	task, raw := TaskFromEnv(func(k string) string { return env[k] })
	if task != TaskBuild || raw != "build" {
		t.Errorf("TaskFromEnv = %v %q, want build", task, raw)
	}

	env[TaskEnv] = "dev"
	if task, _ := TaskFromEnv(func(k string) string { return env[k] }); task != TaskDev {
		t.Errorf("%s should take precedence, got %v", TaskEnv, task)
	}
}

func TestAssemble_PageDirectives(t *testing.T) {
	p := testProject(t, "index.html", "about.html", "contact.html", "notes.txt")
	if err := p.Fs.MkdirAll("app/sub.html", 0755); err != nil {
		t.Fatal(err)
	}

	for _, task := range []Task{TaskDev, TaskBuild, TaskUnsupported} {
		cfg, err := Assemble(task, p)
		if err != nil {
			t.Fatalf("Assemble(%v) error: %v", task, err)
		}

		got := PluginsOf[*PageDirective](cfg)
		want := []*PageDirective{
			{Filename: "about.html", Template: filepath.Join("app", "about.html")},
			{Filename: "contact.html", Template: filepath.Join("app", "contact.html")},
			{Filename: "index.html", Template: filepath.Join("app", "index.html")},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%v page directives mismatch (-want +got):\n%s", task, diff)
		}
	}
}

func TestAssemble_NoPages(t *testing.T) {
	p := testProject(t)
	if err := p.Fs.MkdirAll("app", 0755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Assemble(TaskBuild, p)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(PluginsOf[*PageDirective](cfg)); n != 0 {
		t.Errorf("page directives = %d, want 0", n)
	}
}

func TestAssemble_MissingPageDir(t *testing.T) {
	_, err := Assemble(TaskDev, testProject(t))
	if err == nil {
		t.Fatal("expected error for missing page directory")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E110" {
		t.Errorf("error = %v, want E110", err)
	}
}

func TestAssemble_Dev(t *testing.T) {
	cfg, err := Assemble(TaskDev, testProject(t, "index.html"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Output == nil || filepath.Base(cfg.Output.Path) != "app" {
		t.Fatalf("Output = %+v, want path ending in app", cfg.Output)
	}
	if cfg.Output.Filename != "bundled.js" {
		t.Errorf("Filename = %q, want bundled.js", cfg.Output.Filename)
	}
	if cfg.DevServer == nil || !cfg.DevServer.Hot || cfg.DevServer.Port != 8080 {
		t.Fatalf("DevServer = %+v, want hot on port 8080", cfg.DevServer)
	}
	if cfg.DevServer.ContentBase != "app" {
		t.Errorf("ContentBase = %q, want app", cfg.DevServer.ContentBase)
	}
	if cfg.Mode != ModeDevelopment {
		t.Errorf("Mode = %q, want development", cfg.Mode)
	}
	if cfg.Optimization != nil {
		t.Error("dev should not set optimization")
	}

	rule := cfg.Rule(RuleStyles)
	var loaders []Loader
	for _, s := range rule.Use {
		loaders = append(loaders, s.Loader)
	}
	want := []Loader{LoaderStyleInject, LoaderCSS, LoaderPostCSS}
	if diff := cmp.Diff(want, loaders); diff != "" {
		t.Errorf("style chain mismatch (-want +got):\n%s", diff)
	}
	if cfg.Rule(RuleScripts) != nil {
		t.Error("dev should not lower scripts")
	}
	if len(PluginsOf[*CleanDirective](cfg)) != 0 || len(PluginsOf[*CopyOnDone](cfg)) != 0 {
		t.Error("dev should not clean or copy")
	}
}

func TestAssemble_Build(t *testing.T) {
	cfg, err := Assemble(TaskBuild, testProject(t, "index.html"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Mode != ModeProduction {
		t.Errorf("Mode = %q, want production", cfg.Mode)
	}
	if !cfg.Optimization.Splitting() {
		t.Error("build should split chunks")
	}
	if n := len(PluginsOf[*CleanDirective](cfg)); n != 1 {
		t.Errorf("clean directives = %d, want 1", n)
	}
	if n := len(PluginsOf[*CopyOnDone](cfg)); n != 1 {
		t.Errorf("completion hooks = %d, want 1", n)
	}
	if n := len(PluginsOf[*ExtractStyles](cfg)); n != 1 {
		t.Errorf("extract directives = %d, want 1", n)
	}
	if cfg.DevServer != nil {
		t.Error("build should not describe a dev server")
	}
	if cfg.Output.Path != "doc" || !strings.Contains(cfg.Output.Filename, "[hash]") {
		t.Errorf("Output = %+v, want hashed names in doc", cfg.Output)
	}

	styles := cfg.Rule(RuleStyles)
	if styles.Use[0].Loader != LoaderStyleExtract {
		t.Errorf("first style step = %q, want extract", styles.Use[0].Loader)
	}
	post := styles.Step(LoaderPostCSS)
	want := []string{"import", "simple-vars", "nested", "autoprefixer", "minify"}
	if diff := cmp.Diff(want, post.Options.Transforms); diff != "" {
		t.Errorf("transforms mismatch (-want +got):\n%s", diff)
	}

	scripts := cfg.Rule(RuleScripts)
	if scripts == nil {
		t.Fatal("build should add a scripts rule")
	}
	if scripts.Test != ".js" || scripts.Exclude[0] != "node_modules" {
		t.Errorf("scripts rule = %+v", scripts)
	}
	if s := scripts.Step(LoaderDownlevel); s == nil || s.Options.Target != "es2015" {
		t.Errorf("downlevel step = %+v, want target es2015", s)
	}
}

func TestAssemble_DoesNotShareTransforms(t *testing.T) {
	p := testProject(t, "index.html")
	if _, err := Assemble(TaskBuild, p); err != nil {
		t.Fatal(err)
	}
	if len(p.Transforms) != 4 {
		t.Errorf("project transforms mutated: %v", p.Transforms)
	}
}

func TestAssemble_Unsupported(t *testing.T) {
	var logs bytes.Buffer
	p := testProject(t, "index.html")
	p.Logger = zerolog.New(&logs)

	cfg, err := Assemble(ParseTask("test"), p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output != nil || cfg.DevServer != nil || cfg.Mode != "" {
		t.Errorf("unsupported config has output/devServer/mode: %+v", cfg)
	}
	if !strings.Contains(logs.String(), `"level":"warn"`) {
		t.Errorf("expected a warning, got %q", logs.String())
	}
	if len(PluginsOf[*PageDirective](cfg)) != 1 {
		t.Error("base config should keep page directives")
	}
}

func TestPlugins_MarshalJSON(t *testing.T) {
	cfg, err := Assemble(TaskBuild, testProject(t, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Plugins []struct {
			Plugin string `json:"plugin"`
		} `json:"plugins"`
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range decoded.Plugins {
		names = append(names, p.Plugin)
	}
	want := []string{"page", "clean", "extract-styles", "copy-on-done"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("plugin names mismatch (-want +got):\n%s", diff)
	}
	if decoded.Mode != "production" {
		t.Errorf("mode = %q", decoded.Mode)
	}
}
