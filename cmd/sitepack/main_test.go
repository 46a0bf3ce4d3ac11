package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/vango-dev/sitepack/internal/config"
	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/pack"
)

func TestRootCmd_Subcommands(t *testing.T) {
	var got []string
	for _, c := range newRootCmd().Commands() {
		got = append(got, c.Name())
	}
	want := []string{"build", "config", "deploy", "dev", "init", "run", "version"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagsApply(t *testing.T) {
	cfg := config.New()
	devFlags{port: 3000, host: "0.0.0.0"}.apply(cfg)
	buildFlags{output: "dist", target: "es2017", sourceMaps: true}.apply(cfg)

	if cfg.Dev.Port != 3000 || cfg.Dev.Host != "0.0.0.0" {
		t.Errorf("dev = %s", cfg.DevAddress())
	}
	if cfg.Build.Output != "dist" || cfg.Build.Target != "es2017" || !cfg.Build.SourceMaps {
		t.Errorf("build = %+v", cfg.Build)
	}

	cfg = config.New()
	devFlags{}.apply(cfg)
	buildFlags{}.apply(cfg)
	if cfg.Dev.Port != 8080 || cfg.Build.Output != "doc" {
		t.Errorf("empty flags changed defaults: port %d, output %q", cfg.Dev.Port, cfg.Build.Output)
	}
}

func TestWriteConfig(t *testing.T) {
	cfg := &pack.Config{
		Entry:  "app/scripts.js",
		Output: &pack.Output{Path: "doc", Filename: "[name].[hash].js"},
		Mode:   pack.ModeProduction,
	}

	var buf bytes.Buffer
	if err := writeConfig(&buf, cfg, "json"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"mode": "production"`) {
		t.Errorf("json output:\n%s", buf.String())
	}

	buf.Reset()
	if err := writeConfig(&buf, cfg, "yaml"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"mode: production", "entry: app/scripts.js", "[name].[hash].js"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("yaml output missing %q:\n%s", want, buf.String())
		}
	}

	err := writeConfig(&buf, cfg, "toml")
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E102" {
		t.Errorf("err = %v, want E102", err)
	}
}

func TestRunTask_Unsupported(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "app"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults(dir)

	err := runTask(context.Background(), pack.TaskUnsupported, "lint", cfg, zerolog.Nop())
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E121" {
		t.Fatalf("err = %v, want E121", err)
	}
}
