package pack

import "encoding/json"

// Mode tags the optimization level a configuration was assembled for.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Loader names a transform step in a rule chain.
type Loader string

const (
	// LoaderStyleInject turns stylesheets into scripts that install them at
	// runtime.
	LoaderStyleInject Loader = "style-inject"

	// LoaderStyleExtract writes stylesheets to their own files.
	LoaderStyleExtract Loader = "style-extract"

	// LoaderCSS resolves url() and @import references.
	LoaderCSS Loader = "css"

	// LoaderPostCSS applies the style transforms named in its options.
	LoaderPostCSS Loader = "postcss"

	// LoaderDownlevel lowers script syntax to the target in its options.
	LoaderDownlevel Loader = "downlevel"
)

// Rule names for the rules Assemble creates.
const (
	RuleStyles  = "styles"
	RuleScripts = "scripts"
)

// Config is the assembled build configuration.
type Config struct {
	// Entry is the script entry point.
	Entry string `json:"entry"`

	// Module holds the transform rules.
	Module Module `json:"module"`

	// Plugins run in order at the lifecycle points they register for.
	Plugins Plugins `json:"plugins"`

	// Output describes where bundles are written. Nil for unsupported tasks.
	Output *Output `json:"output,omitempty"`

	// DevServer describes the development server, dev task only.
	DevServer *DevServer `json:"devServer,omitempty"`

	// Mode is empty for unsupported tasks.
	Mode Mode `json:"mode,omitempty"`

	// Optimization is set for production builds.
	Optimization *Optimization `json:"optimization,omitempty"`
}

// Module holds the transform rules.
type Module struct {
	Rules []*Rule `json:"rules"`
}

// Rule applies a chain of steps to files whose name ends with Test.
type Rule struct {
	Name string `json:"name"`

	// Test is the file name suffix the rule applies to.
	Test string `json:"test"`

	// Exclude lists path segments whose files the rule skips.
	Exclude []string `json:"exclude,omitempty"`

	// Use is the step chain. The first step listed is the outermost one.
	Use []Step `json:"use"`
}

// Step is one loader invocation in a rule chain.
type Step struct {
	Loader  Loader       `json:"loader"`
	Options *StepOptions `json:"options,omitempty"`
}

// StepOptions configures a step. Only the fields its loader reads are set.
type StepOptions struct {
	// Transforms are the style transforms of a postcss step, in order.
	Transforms []string `json:"transforms,omitempty"`

	// Browsers are the prefixing engines of a postcss step.
	Browsers []string `json:"browsers,omitempty"`

	// Target is the language level of a downlevel step.
	Target string `json:"target,omitempty"`
}

// Output describes the bundle files.
type Output struct {
	// Path is the output directory.
	Path string `json:"path"`

	// Filename is the entry bundle name or name pattern.
	Filename string `json:"filename"`

	// ChunkFilename is the split chunk name pattern.
	ChunkFilename string `json:"chunkFilename,omitempty"`
}

// DevServer describes the development server.
type DevServer struct {
	// ContentBase is the directory served as-is.
	ContentBase string `json:"contentBase"`

	Host string `json:"host"`
	Port int    `json:"port"`

	// Hot enables live reload of connected browsers.
	Hot bool `json:"hot"`

	// Watch lists globs whose changes trigger a rebuild.
	Watch []string `json:"watch,omitempty"`
}

// Optimization configures production optimizations.
type Optimization struct {
	SplitChunks SplitChunks `json:"splitChunks"`
}

// SplitChunks configures code splitting.
type SplitChunks struct {
	// Chunks selects which chunks are split: "all" or "" for none.
	Chunks string `json:"chunks"`
}

// Splitting reports whether code splitting is enabled.
func (o *Optimization) Splitting() bool {
	return o != nil && o.SplitChunks.Chunks == "all"
}

// Rule returns the rule with the given name, or nil.
func (c *Config) Rule(name string) *Rule {
	for _, r := range c.Module.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Prepend inserts a step at the front of the chain.
func (r *Rule) Prepend(s Step) {
	r.Use = append([]Step{s}, r.Use...)
}

// Append adds a step at the end of the chain.
func (r *Rule) Append(s Step) {
	r.Use = append(r.Use, s)
}

// Step returns the first step using the loader, or nil.
func (r *Rule) Step(l Loader) *Step {
	if r == nil {
		return nil
	}
	for i := range r.Use {
		if r.Use[i].Loader == l {
			return &r.Use[i]
		}
	}
	return nil
}

// Plugins is an ordered plugin list.
type Plugins []Plugin

// MarshalJSON encodes each plugin as its name and its fields.
func (ps Plugins) MarshalJSON() ([]byte, error) {
	type named struct {
		Plugin  string `json:"plugin"`
		Options Plugin `json:"options"`
	}
	out := make([]named, len(ps))
	for i, p := range ps {
		out[i] = named{Plugin: p.Name(), Options: p}
	}
	return json.Marshal(out)
}

// PluginsOf returns the plugins of type T in order.
func PluginsOf[T Plugin](c *Config) []T {
	var out []T
	for _, p := range c.Plugins {
		if t, ok := p.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
