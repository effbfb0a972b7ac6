package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config without resolving projects",
	Long: `Check the config file for errors and suspicious values.

Errors (a project without a path, an invalid compilerVersion range) fail
the command. Warnings (lint values of the wrong shape, duplicate project
paths, paths outside the root) are reported; the resolver ignores or
deduplicates those entries.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	color := output.UseColor(w)

	warnings, err := config.Validate(cfg)

	sec := output.NewSection(w, "Validate", 0, color)
	sec.Row("%-12s%s", "config", cfg.Source)
	sec.Row("%-12s%d", "projects", len(cfg.Projects))
	if len(warnings) > 0 || err != nil {
		sec.Separator()
	}
	for _, warn := range warnings {
		sec.StatusRow("warning", output.StatusSkipped, warn)
	}
	if err != nil {
		sec.StatusRow("error", output.StatusFailed, err.Error())
	}
	sec.Close()

	if err != nil {
		return fmt.Errorf("%s: invalid config", cfg.Source)
	}
	return nil
}
