package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Project file not found",
		Detail:   "sitepack looks for sitepack.json or sitepack.yaml in the working directory and its parents.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid project file",
		Detail:   "The project file could not be parsed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Project file could not be written",
	},
	"E104": {
		Category: CategoryCLI,
		Message:  "Project template not found",
	},
	"E105": {
		Category: CategoryCLI,
		Message:  "Project already exists",
		Detail:   "sitepack init does not overwrite existing files.",
	},

	// ============================================
	// Assembly Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryAssemble,
		Message:  "Page directory could not be read",
	},
	"E111": {
		Category: CategoryAssemble,
		Message:  "Unsupported task",
		Detail:   "Only the dev and build tasks produce a runnable configuration.",
	},
	"E112": {
		Category: CategoryAssemble,
		Message:  "Page template could not be rendered",
	},
	"E113": {
		Category: CategoryAssemble,
		Message:  "Directory copy failed",
	},
	"E114": {
		Category: CategoryAssemble,
		Message:  "Output directory could not be cleaned",
	},

	// ============================================
	// Build Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryBuild,
		Message:  "Bundling failed",
	},
	"E121": {
		Category: CategoryBuild,
		Message:  "Configuration has no output",
		Detail:   "The configuration was assembled for an unsupported task and cannot be built.",
	},
	"E122": {
		Category: CategoryBuild,
		Message:  "Build metadata could not be read",
	},
	"E123": {
		Category: CategoryBuild,
		Message:  "Output file could not be written",
	},
	"E124": {
		Category: CategoryBuild,
		Message:  "Unknown style transform",
	},
	"E125": {
		Category: CategoryBuild,
		Message:  "Unknown loader",
	},

	// ============================================
	// Development Server Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryDev,
		Message:  "Development server failed",
	},
	"E131": {
		Category: CategoryDev,
		Message:  "File watcher failed",
	},

	// ============================================
	// Deploy Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryDeploy,
		Message:  "Publish directory not found",
		Detail:   "Run 'sitepack build' before deploying.",
	},
	"E141": {
		Category: CategoryDeploy,
		Message:  "Upload failed",
	},
	"E142": {
		Category: CategoryDeploy,
		Message:  "Deploy bucket not configured",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
