// Package templates provides project scaffolding for sitepack init.
//
// # Available Templates
//
//   - basic: one page with a script and a stylesheet
//   - multipage: several pages sharing variables, partials and images
//
// # Usage
//
//	tmpl, err := templates.Get("basic")
//	if err != nil {
//	    return err
//	}
//	err = tmpl.Create(afero.NewOsFs(), dir, templates.Config{ProjectName: "site"})
//
// # Template Variables
//
//	{{.ProjectName}}     - Name of the project
//	{{.Description}}     - Site description
package templates
