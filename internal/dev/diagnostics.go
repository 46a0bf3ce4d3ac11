package dev

import (
	stderrors "errors"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/vango-dev/sitepack/internal/build"
	"github.com/vango-dev/sitepack/internal/errors"
)

// Diagnostic is one compilation problem as the browser overlay shows it.
type Diagnostic struct {
	Text   string `json:"text"`
	Plugin string `json:"plugin,omitempty"`

	// File is relative to the project directory. Line is 1-based and
	// Column 0-based, as esbuild reports them.
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Length   int    `json:"length,omitempty"`
	LineText string `json:"lineText,omitempty"`

	Notes []string `json:"notes,omitempty"`
}

// Diagnostics flattens a failed result into overlay entries: esbuild's
// errors first, then hook errors.
func Diagnostics(res *build.Result) []Diagnostic {
	if res == nil {
		return nil
	}
	out := make([]Diagnostic, 0, len(res.Errors)+len(res.HookErrors))
	for _, m := range res.Errors {
		out = append(out, fromMessage(m))
	}
	for _, err := range res.HookErrors {
		out = append(out, fromError(err))
	}
	return out
}

func fromMessage(m api.Message) Diagnostic {
	d := Diagnostic{Text: m.Text, Plugin: m.PluginName}
	if loc := m.Location; loc != nil {
		d.File = loc.File
		d.Line = loc.Line
		d.Column = loc.Column
		d.Length = loc.Length
		d.LineText = loc.LineText
	}
	for _, n := range m.Notes {
		if n.Text != "" {
			d.Notes = append(d.Notes, n.Text)
		}
	}
	return d
}

func fromError(err error) Diagnostic {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return Diagnostic{Text: err.Error()}
	}
	d := Diagnostic{Text: e.Error()}
	if e.Location != nil {
		d.File = e.Location.File
		d.Line = e.Location.Line
		if e.Location.Column > 0 {
			d.Column = e.Location.Column - 1
		}
	}
	if e.Suggestion != "" {
		d.Notes = append(d.Notes, e.Suggestion)
	}
	return d
}
