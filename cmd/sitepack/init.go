package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sitepack/internal/templates"
)

func initCmd() *cobra.Command {
	var (
		template    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a new site",
		Long: `Create a new site from a template.

Available templates: ` + strings.Join(templates.List(), ", ") + `

Examples:
  sitepack init
  sitepack init my-site --template=multipage`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			tmpl, err := templates.Get(template)
			if err != nil {
				return err
			}
			cfg := templates.Config{
				ProjectName: filepath.Base(abs),
				Description: description,
			}
			if err := tmpl.Create(afero.NewOsFs(), abs, cfg); err != nil {
				return err
			}

			success("Created %s from the %s template", cfg.ProjectName, tmpl.Name)
			for _, p := range tmpl.Paths() {
				info("%s", p)
			}
			fmt.Println()
			if dir != "." {
				info("cd %s", dir)
			}
			info("sitepack dev")
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "basic", "Project template")
	cmd.Flags().StringVarP(&description, "description", "d", "A static site", "Site description")

	return cmd
}
