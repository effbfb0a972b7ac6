package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sofmeright/tswatch/src/config"
)

var (
	migrateWrite  bool
	migrateOutput string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [file]",
	Short: "Convert a config file to canonical YAML",
	Long: `Convert a tswatch.json or .tswatch.toml config (or an existing YAML
config) to canonical .tswatch.yml form.

By default, prints the converted config to stdout. Use --write to create
.tswatch.yml next to the input, or --output to write to a different path.
The input file is never removed; .tswatch.yml takes precedence over the
other default names once it exists.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVarP(&migrateWrite, "write", "w", false, "write .tswatch.yml next to the input file")
	migrateCmd.Flags().StringVarP(&migrateOutput, "output", "o", "", "write the converted config to this path")

	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	var inputPath string
	switch {
	case len(args) > 0:
		inputPath = args[0]
	case cfgFile != "":
		inputPath = cfgFile
	default:
		return errors.New("migrate: no input file (pass one or use --config)")
	}

	format, err := config.FormatOf(inputPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	migrated, err := config.Migrate(data, format)
	if err != nil {
		return err
	}

	dest := migrateOutput
	if migrateWrite {
		dest = filepath.Join(filepath.Dir(inputPath), config.DefaultFiles[0])
	}
	if dest == "" {
		_, err := cmd.OutOrStdout().Write(migrated)
		return err
	}

	if err := os.WriteFile(dest, migrated, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "  migrated %s → %s\n", inputPath, dest)
	return nil
}
