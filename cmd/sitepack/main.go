package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sitepack/internal/config"
	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/logger"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globals holds the persistent root flags.
type globals struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "sitepack",
		Short: "Bundle scripts, styles and pages for static websites",
		Long: `sitepack compiles a static website's scripts, styles and HTML pages.

  • dev    serves the source directory with hot reload
  • build  writes hashed bundles, pages and images to the publish directory
  • run    picks dev or build from SITEPACK_TASK or the npm script name`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Project file (default: sitepack.json found from the working directory)")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Human-readable debug logging")

	rootCmd.AddCommand(
		initCmd(),
		devCmd(g),
		buildCmd(g),
		runCmd(g),
		configCmd(g),
		deployCmd(g),
		versionCmd(),
	)

	return rootCmd
}

// load reads and validates the project file and sets up the logger.
func (g *globals) load() (*config.Config, zerolog.Logger, error) {
	log := logger.Setup(g.debug)

	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, log, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, log, err
	}
	return cfg, log, nil
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", yellow("⚠"), fmt.Sprintf(format, args...))
}
