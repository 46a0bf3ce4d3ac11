package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sitepack/internal/build"
	"github.com/vango-dev/sitepack/internal/config"
	"github.com/vango-dev/sitepack/internal/dev"
	"github.com/vango-dev/sitepack/internal/pack"
)

type devFlags struct {
	port int
	host string
}

func devCmd(g *globals) *cobra.Command {
	var f devFlags

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with hot reload.

Scripts are bundled in place into the source directory, styles are
injected from the bundle, and pages are rendered in memory. Browsers
reload after every successful rebuild and show an overlay on errors.

Examples:
  sitepack dev
  sitepack dev --port=3000
  sitepack dev --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			f.apply(cfg)
			return runDev(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to run on (default from sitepack.json)")
	cmd.Flags().StringVarP(&f.host, "host", "H", "", "Host to bind to (default from sitepack.json)")

	return cmd
}

func (f devFlags) apply(cfg *config.Config) {
	if f.port > 0 {
		cfg.Dev.Port = f.port
	}
	if f.host != "" {
		cfg.Dev.Host = f.host
	}
}

func runDev(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	packCfg, err := pack.Assemble(pack.TaskDev, pack.ProjectFromConfig(cfg, log))
	if err != nil {
		return err
	}

	server, err := dev.NewServer(dev.ServerOptions{
		Config: packCfg,
		Logger: log,
		Build: build.Options{
			Logger:  log,
			WorkDir: cfg.Dir(),
		},
		OnBuildComplete: func(res *build.Result) {
			if res.Failed() {
				warn("Build failed, see the browser overlay")
				return
			}
			success("Built in %s", res.Duration.Round(1000000))
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext(ctx)
	defer stop()

	fmt.Println()
	success("Serving %s at %s", cfg.Source, cfg.DevURL())
	fmt.Println()

	return server.Start(ctx)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
