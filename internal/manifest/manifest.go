// Package manifest reads and writes the manifest.json a production build
// leaves in the publish directory. It maps logical asset names to their
// fingerprinted files:
//
//	{
//	  "scripts.js": "scripts.1A2B3C4D.js",
//	  "scripts.css": "scripts.5e6f7a8b.css"
//	}
package manifest

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/errors"
)

// Name is the manifest file name inside the publish directory.
const Name = "manifest.json"

// Manifest holds the mapping from logical names to fingerprinted paths.
// It is safe for concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// New creates an empty manifest.
func New() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// Load reads a manifest file.
func Load(fsys afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.New("E122").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}
	if entries == nil {
		entries = make(map[string]string)
	}

	return &Manifest{entries: entries}, nil
}

// Write stores the manifest as indented JSON at path.
func (m *Manifest) Write(fsys afero.Fs, path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, data, 0o644)
}

// Set adds or updates an entry.
func (m *Manifest) Set(name, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[name] = resolved
}

// Fingerprinted reports whether file is the target of some entry.
func (m *Manifest) Fingerprinted(file string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.entries {
		if v == file {
			return true
		}
	}
	return false
}

// Files returns the fingerprinted paths, sorted.
func (m *Manifest) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]string, 0, len(m.entries))
	for _, v := range m.entries {
		files = append(files, v)
	}
	sort.Strings(files)
	return files
}
