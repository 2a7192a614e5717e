package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arnavshah/rotation-scheduler-api/pkg/config"
	"github.com/arnavshah/rotation-scheduler-api/pkg/logger"
)

type rootOptions struct {
	cfgPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "rotaplan",
		Short:        "Plan and check student rotation schedules",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", os.Getenv("ROTA_CONFIG"), "configuration file")
	cmd.AddCommand(newPlanCmd(opts), newCheckCmd(opts))
	return cmd
}

// load reads the configuration and builds a logger that writes to stderr so
// stdout carries only the result.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	config.LoadDotEnv()
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.NewWithWriter("rotaplan", cmd.ErrOrStderr(), cfg.Logging.Level), nil
}

// readYAML decodes a YAML or JSON file into out.
func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
