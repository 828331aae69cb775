package main

import (
	"github.com/spf13/cobra"

	"github.com/sayrer/rules-rust/internal/options"
)

func newPlanCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "plan [flags] -- executable [args...]",
		Short: "Print the resolved invocation plan without running it",
		Long: `Resolve the invocation exactly as a normal run would and print the result.
@file parameter files are still expanded on disk.

The printed env holds the whole inherited environment, not only the values
from --env-file. Any credentials present in the environment are printed too.`,
		Args: validateChildArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.buildPlan(cmd, args)
			if err != nil {
				return err
			}
			return plan.Encode(cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", options.FormatJSON, "Output format (json|yaml|toml)")
	return cmd
}
