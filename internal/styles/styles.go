// Package styles implements the style transforms sitepack applies on top of
// esbuild's CSS support.
//
// esbuild already inlines @import, lowers nesting, adds vendor prefixes for
// the configured engines and minifies. The transforms it lacks live here:
// simple variables ($name: value), mixins (@define-mixin / @mixin) and the
// module that injects compiled CSS into the page at runtime during
// development.
package styles

// Transform names accepted in a style chain.
const (
	// Import inlines @import rules.
	Import = "import"

	// SimpleVars substitutes $name variables.
	SimpleVars = "simple-vars"

	// Nested lowers nested rules to flat selectors.
	Nested = "nested"

	// Mixins expands @define-mixin blocks where @mixin includes them.
	Mixins = "mixins"

	// Autoprefixer adds vendor prefixes for the configured browsers.
	Autoprefixer = "autoprefixer"

	// Minify minifies the compiled stylesheet.
	Minify = "minify"
)

var known = map[string]bool{
	Import:       true,
	SimpleVars:   true,
	Nested:       true,
	Mixins:       true,
	Autoprefixer: true,
	Minify:       true,
}

// Known reports whether name is a supported transform.
func Known(name string) bool {
	return known[name]
}

// Has reports whether the transform list contains name.
func Has(transforms []string, name string) bool {
	for _, t := range transforms {
		if t == name {
			return true
		}
	}
	return false
}
