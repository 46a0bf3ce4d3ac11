package dev

import (
	"path/filepath"
	"strings"
)

// WatchRoots returns the directories that must be watched to see every file
// the patterns can match: for each pattern, the directory part before the
// first glob segment. Duplicates and roots nested in other roots are dropped.
func WatchRoots(patterns []string) []string {
	roots := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		roots = append(roots, globRoot(pattern))
	}

	unique := make([]string, 0, len(roots))
	seen := make(map[string]struct{}, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		clean := filepath.Clean(root)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}

	nested := make([]string, 0, len(unique))
	for _, root := range unique {
		covered := false
		for _, other := range unique {
			if other != root && isWithinDir(root, other) {
				covered = true
				break
			}
		}
		if !covered {
			nested = append(nested, root)
		}
	}
	return nested
}

// globRoot returns the static directory prefix of a slash-separated glob.
func globRoot(pattern string) string {
	segments := strings.Split(pattern, "/")
	var static []string
	for _, seg := range segments[:len(segments)-1] {
		if strings.ContainsAny(seg, "*?[{") {
			break
		}
		static = append(static, seg)
	}

	root := strings.Join(static, "/")
	switch {
	case root == "" && strings.HasPrefix(pattern, "/"):
		return string(filepath.Separator)
	case root == "":
		return "."
	}
	return filepath.FromSlash(root)
}

func isWithinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
