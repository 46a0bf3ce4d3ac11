package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// Description is a short site description used in page metadata.
	Description string
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"basic":     basicTemplate(),
	"multipage": multipageTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E104").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: basic, multipage")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths returns the template's file paths, sorted.
func (t *Template) Paths() []string {
	paths := make([]string, 0, len(t.Files))
	for p := range t.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Create generates a project from the template. Nothing is written if any
// of the template's files already exists in dir.
func (t *Template) Create(fsys afero.Fs, dir string, cfg Config) error {
	paths := t.Paths()

	for _, relPath := range paths {
		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if ok, _ := afero.Exists(fsys, fullPath); ok {
			return errors.New("E105").
				WithDetail(fullPath + " already exists").
				WithSuggestion("Run sitepack init in an empty directory")
		}
	}

	for _, relPath := range paths {
		tmpl, err := template.New(relPath).Parse(t.Files[relPath])
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := fsys.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(fsys, fullPath, buf.Bytes(), os.FileMode(0o644)); err != nil {
			return err
		}
	}

	return nil
}

const projectFile = `{
  "name": "{{.ProjectName}}",
  "source": "app",
  "entry": "app/assets/scripts/scripts.js",
  "build": {
    "output": "doc"
  }
}
`

const gitignore = `node_modules/
doc/
app/bundled.js
`

// basicTemplate returns a single page site.
func basicTemplate() *Template {
	return &Template{
		Name:        "basic",
		Description: "One page with a script and a stylesheet",
		Files: map[string]string{
			"sitepack.json": projectFile,
			".gitignore":    gitignore,
			"app/index.html": `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <meta name="description" content="{{.Description}}">
  <title>{{.ProjectName}}</title>
</head>
<body>
  <main class="page">
    <h1>{{.ProjectName}}</h1>
    <p>Edit app/index.html and save to reload.</p>
  </main>
</body>
</html>
`,
			"app/assets/scripts/scripts.js": `import "../styles/styles.css";

document.documentElement.classList.add("js");
`,
			"app/assets/styles/styles.css": `$accent: #1d4ed8;
$gap: 1.5rem;

.page {
  padding: $gap;

  h1 {
    color: $accent;
  }
}
`,
			"app/assets/images/.gitkeep": "",
		},
	}
}

// multipageTemplate returns a site with shared styles across pages.
func multipageTemplate() *Template {
	return &Template{
		Name:        "multipage",
		Description: "Several pages sharing variables, partials and images",
		Files: map[string]string{
			"sitepack.json":  projectFile,
			".gitignore":     gitignore,
			"app/index.html": page("Home", `<p>Welcome to {{.ProjectName}}.</p>`),
			"app/about.html": page("About", `<p>{{.Description}}</p>`),
			"app/assets/scripts/scripts.js": `import "../styles/styles.css";
import { highlight } from "./nav.js";

highlight(window.location.pathname);
`,
			"app/assets/scripts/nav.js": `export function highlight(path) {
  for (const link of document.querySelectorAll(".nav a")) {
    if (link.getAttribute("href") === path) {
      link.classList.add("is-active");
    }
  }
}
`,
			"app/assets/styles/styles.css": `@import "base/variables.css";
@import "base/layout.css";

.nav {
  display: flex;
  gap: $gap;

  a.is-active {
    color: $accent;
  }
}
`,
			"app/assets/styles/base/variables.css": `$accent: #1d4ed8;
$text: #111827;
$gap: 1rem;
`,
			"app/assets/styles/base/layout.css": `body {
  color: $text;
  margin: 0 auto;
  max-width: 48rem;
}
`,
			"app/assets/images/.gitkeep": "",
		},
	}
}

func page(title, body string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>` + title + ` | {{.ProjectName}}</title>
</head>
<body>
  <nav class="nav">
    <a href="/">Home</a>
    <a href="/about.html">About</a>
  </nav>
  <main class="page">
    ` + body + `
  </main>
</body>
</html>
`
}
