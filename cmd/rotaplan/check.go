package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arnavshah/rotation-scheduler-api/pkg/export"
	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
	"github.com/arnavshah/rotation-scheduler-api/pkg/scheduler"
)

type checkOptions struct {
	input       string
	assignments string
	pretty      bool
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate an existing assignment list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "students and services (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.assignments, "assignments", "a", "", "assignments as CSV, or a YAML/JSON list or plan")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "print a summary instead of JSON")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("assignments")
	return cmd
}

func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions) error {
	cfg, _, err := root.load(cmd)
	if err != nil {
		return err
	}

	var input models.CheckInput
	if err := readYAML(opts.input, &input); err != nil {
		return err
	}
	assignments, err := readAssignments(opts.assignments)
	if err != nil {
		return err
	}

	policy := cfg.Planner.Policy
	if input.Policy != nil {
		policy = *input.Policy
	}
	policy = scheduler.ResolvePolicy(policy)
	if err := scheduler.ValidateInput(input.Students, input.Services, policy); err != nil {
		return err
	}

	resp := models.CheckResponse{
		ValidationReport: scheduler.Validate(assignments, input.Students, input.Services, policy),
		EfficiencyReport: scheduler.AnalyzeEfficiency(assignments, input.Services, policy),
	}
	out := cmd.OutOrStdout()
	if opts.pretty {
		err = writeReport(out, resp.ValidationReport)
	} else {
		err = writeJSON(out, resp)
	}
	if err != nil {
		return err
	}
	if n := len(resp.ValidationReport.Errors); n > 0 {
		return fmt.Errorf("plan has %d validation errors", n)
	}
	return nil
}

// readAssignments accepts a CSV file, a plain list, or a saved plan response.
func readAssignments(path string) ([]models.Assignment, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return export.ReadAssignments(f)
	}

	var plan struct {
		Assignments []models.Assignment `yaml:"assignments"`
	}
	if err := readYAML(path, &plan); err == nil {
		return plan.Assignments, nil
	}
	var list []models.Assignment
	if err := readYAML(path, &list); err != nil {
		return nil, err
	}
	return list, nil
}
