package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sitepack/internal/build"
	"github.com/vango-dev/sitepack/internal/config"
	"github.com/vango-dev/sitepack/internal/pack"
)

type buildFlags struct {
	output     string
	target     string
	sourceMaps bool
}

func buildCmd(g *globals) *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for production",
		Long: `Build the site for publishing.

This command:
  • Empties the publish directory
  • Bundles, minifies and lowers scripts with hashed names
  • Extracts styles into hashed files
  • Renders every page with the bundle tags
  • Copies the image directory
  • Writes manifest.json

Examples:
  sitepack build
  sitepack build --output=dist
  sitepack build --target=es2017 --sourcemaps`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			f.apply(cfg)
			return runBuild(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Publish directory (default from sitepack.json)")
	cmd.Flags().StringVar(&f.target, "target", "", "Script language level, e.g. es2017")
	cmd.Flags().BoolVar(&f.sourceMaps, "sourcemaps", false, "Write linked source maps")

	return cmd
}

func (f buildFlags) apply(cfg *config.Config) {
	if f.output != "" {
		cfg.Build.Output = f.output
	}
	if f.target != "" {
		cfg.Build.Target = f.target
	}
	if f.sourceMaps {
		cfg.Build.SourceMaps = true
	}
}

func runBuild(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	packCfg, err := pack.Assemble(pack.TaskBuild, pack.ProjectFromConfig(cfg, log))
	if err != nil {
		return err
	}

	runner, err := build.New(packCfg, build.Options{
		Logger:     log,
		WorkDir:    cfg.Dir(),
		SourceMaps: cfg.Build.SourceMaps,
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext(ctx)
	defer stop()

	fmt.Println("  Building for production...")
	fmt.Println()

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	success("Build complete in %s", res.Duration.Round(1000000))
	fmt.Println()
	fmt.Printf("  %s/\n", cfg.Build.Output)
	for _, name := range res.Stats.Files {
		fmt.Printf("    %-40s %s\n", name, fileSize(filepath.Join(res.Stats.OutDir, name)))
	}
	for _, name := range res.Emitted {
		fmt.Printf("    %-40s %s\n", name, fileSize(filepath.Join(res.Stats.OutDir, name)))
	}
	fmt.Println()

	if len(res.Warnings) > 0 {
		warn("%s", build.FormatMessages(res.Warnings, api.WarningMessage))
	}

	return nil
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(fi.Size()))
}
