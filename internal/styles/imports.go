package styles

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gorilla/css/scanner"
	"github.com/spf13/afero"
)

// InlineImports reads the stylesheet at path and replaces each local
// `@import "file";` with the imported file's contents, recursively. Each file
// is inlined at most once. Imports with a scheme, a media query or no local
// match are kept for the bundler to resolve.
//
// The returned list holds every file read, starting with path.
func InlineImports(fsys afero.Fs, path string) (string, []string, error) {
	seen := make(map[string]bool)
	var files []string
	out, err := inline(fsys, path, seen, &files)
	return out, files, err
}

func inline(fsys afero.Fs, path string, seen map[string]bool, files *[]string) (string, error) {
	seen[path] = true
	*files = append(*files, path)

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", err
	}
	tokens, err := tokenize(string(data))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	var out strings.Builder
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type != scanner.TokenAtKeyword || !strings.EqualFold(tok.Value, "@import") {
			out.WriteString(tok.Value)
			continue
		}

		j := skipSpace(tokens, i+1)
		target, ok := importTarget(tokens, j)
		end := skipSpace(tokens, j+1)
		if !ok || !isChar(tokens, end, ";") {
			out.WriteString(tok.Value)
			continue
		}

		resolved := filepath.Join(filepath.Dir(path), filepath.FromSlash(target))
		if exists, _ := afero.Exists(fsys, resolved); !exists {
			out.WriteString(tok.Value)
			continue
		}

		if !seen[resolved] {
			body, err := inline(fsys, resolved, seen, files)
			if err != nil {
				return "", err
			}
			out.WriteString(body)
		}
		i = end
	}
	return out.String(), nil
}

// importTarget returns the local path named by the token at i, which is a
// quoted string or a url().
func importTarget(tokens []*scanner.Token, i int) (string, bool) {
	if i >= len(tokens) {
		return "", false
	}
	var target string
	switch tok := tokens[i]; tok.Type {
	case scanner.TokenString:
		target = unquote(tok.Value)
	case scanner.TokenURI:
		target = strings.TrimSpace(tok.Value[len("url(") : len(tok.Value)-1])
		target = unquote(target)
	default:
		return "", false
	}
	if target == "" || strings.Contains(target, "://") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "data:") {
		return "", false
	}
	return target, true
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
