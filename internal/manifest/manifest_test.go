package manifest

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/errors"
)

func TestManifestFingerprinted(t *testing.T) {
	m := New()
	m.Set("scripts.js", "scripts.ABC12345.js")
	m.Set("scripts.css", "scripts.def45678.css")

	tests := []struct {
		file string
		want bool
	}{
		{"scripts.ABC12345.js", true},
		{"scripts.def45678.css", true},
		{"scripts.js", false},
		{"unknown.js", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.Fingerprinted(tt.file); got != tt.want {
			t.Errorf("Fingerprinted(%q) = %v, want %v", tt.file, got, tt.want)
		}
	}

	m.Set("scripts.js", "scripts.99999999.js")
	if m.Fingerprinted("scripts.ABC12345.js") {
		t.Error("replaced target still reported as fingerprinted")
	}
}

func TestManifestFiles(t *testing.T) {
	m := New()
	m.Set("scripts.js", "scripts.B.js")
	m.Set("scripts.css", "scripts.A.css")

	if diff := cmp.Diff([]string{"scripts.A.css", "scripts.B.js"}, m.Files()); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New()
	m.Set("scripts.js", "scripts.ABC12345.js")

	if err := m.Write(fs, "/doc/"+Name); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(fs, "/doc/"+Name)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m.Files(), loaded.Files()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(afero.NewMemMapFs(), "/doc/manifest.json"); err == nil {
		t.Error("Load() should return error for missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/doc/manifest.json", []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(fs, "/doc/manifest.json")
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E122" {
		t.Errorf("err = %v, want E122", err)
	}
}

func TestLoadNull(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/doc/manifest.json", []byte("null"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(fs, "/doc/manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	m.Set("a.js", "a.1.js")
	if diff := cmp.Diff([]string{"a.1.js"}, m.Files()); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}
