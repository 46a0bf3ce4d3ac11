// Package pages discovers page templates and injects built bundles into them.
package pages

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Page is one page template found in the source directory.
type Page struct {
	// Name is the template file name, which is also the output file name.
	Name string

	// Path is the template path.
	Path string
}

// Discover lists the files directly inside dir whose name ends with ext.
// Subdirectories are not searched. The result is sorted by name.
func Discover(fsys afero.Fs, dir, ext string) ([]Page, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		pages = append(pages, Page{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })
	return pages, nil
}
