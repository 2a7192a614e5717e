package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
	"github.com/arnavshah/rotation-scheduler-api/pkg/scheduler"
)

type planOptions struct {
	input  string
	format string
	pretty bool
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run the scheduler on an input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "students, services and start date (YAML or JSON)")
	cmd.Flags().StringVar(&opts.format, "format", "json", "output format: json or csv")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "print a table instead of machine-readable output")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, opts *planOptions) error {
	if opts.format != "json" && opts.format != "csv" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	cfg, log, err := root.load(cmd)
	if err != nil {
		return err
	}

	var input models.ScheduleInput
	if err := readYAML(opts.input, &input); err != nil {
		return err
	}
	policy := cfg.Planner.Policy
	if input.Policy != nil {
		policy = *input.Policy
	}

	s, err := scheduler.New(input.Students, input.Services, input.StartDate, policy, scheduler.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Planner.Timeout())
	defer cancel()

	res, runErr := s.Run(ctx)
	if runErr != nil && !errors.Is(runErr, scheduler.ErrRejected) {
		return runErr
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.pretty:
		err = writePretty(out, res.Response())
	case opts.format == "csv":
		err = writeCSV(out, res.Assignments)
	default:
		err = writeJSON(out, res.Response())
	}
	if err != nil {
		return err
	}
	return runErr
}
