package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sitepack/internal/build"
	"github.com/vango-dev/sitepack/internal/config"
	"github.com/vango-dev/sitepack/internal/pack"
)

func runCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the task named by the environment",
		Long: `Run dev or build depending on the environment.

The task is read from SITEPACK_TASK, falling back to npm_lifecycle_event
so sitepack can sit behind "npm run dev" and "npm run build". Any other
value assembles a configuration without output, which cannot be built.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			task, raw := pack.TaskFromEnv(os.Getenv)
			return runTask(cmd.Context(), task, raw, cfg, log)
		},
	}
}

func runTask(ctx context.Context, task pack.Task, raw string, cfg *config.Config, log zerolog.Logger) error {
	switch task {
	case pack.TaskDev:
		return runDev(ctx, cfg, log)
	case pack.TaskBuild:
		return runBuild(ctx, cfg, log)
	}

	warn("Unsupported task %q, expected dev or build", raw)
	packCfg, err := pack.Assemble(task, pack.ProjectFromConfig(cfg, log))
	if err != nil {
		return err
	}
	_, err = build.New(packCfg, build.Options{Logger: log, WorkDir: cfg.Dir()})
	return err
}
