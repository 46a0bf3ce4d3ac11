package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/pack"
)

func configCmd(g *globals) *cobra.Command {
	var (
		task   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the assembled build configuration",
		Long: `Print the configuration dev or build would run with.

Without --task the task is read from SITEPACK_TASK or npm_lifecycle_event.

Examples:
  sitepack config --task=build
  sitepack config --task=dev --format=yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}

			t, _ := pack.TaskFromEnv(os.Getenv)
			if task != "" {
				t = pack.ParseTask(task)
			}

			packCfg, err := pack.Assemble(t, pack.ProjectFromConfig(cfg, log))
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), packCfg, format)
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "Task to assemble: dev or build")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")

	return cmd
}

// writeConfig prints cfg as indented JSON or as YAML. YAML goes through the
// JSON form so both share the same field names.
func writeConfig(w io.Writer, cfg *pack.Config, format string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	switch format {
	case "json":
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}

	return errors.New("E102").
		WithDetail(fmt.Sprintf("Unknown format %q", format)).
		WithSuggestion("Use --format=json or --format=yaml")
}
