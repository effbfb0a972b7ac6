package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/logger"
)

var (
	cfgFile string
	rootDir string
	debug   bool
	logJSON bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tswatch",
	Short: "Resolve per-project TypeScript build and lint settings",
	Long: `tswatch resolves one self-contained compiler and tslint settings record per
project from a single config file with global defaults and project overrides.

Run without a subcommand to resolve.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that never read the config.
		switch cmd.Name() {
		case "version", "migrate":
			initLogger(debug)
			return nil
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		initLogger(debug || cfg.Debug)
		logger.Debug("config loaded", "source", cfg.Source, "projects", len(cfg.Projects))
		return nil
	},
	RunE:          runResolve,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .tswatch.yml, .tswatch.yaml, tswatch.json or .tswatch.toml in the root)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root that relative paths resolve against (default: working directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	registerResolveFlags(rootCmd)
}

func initLogger(debugOn bool) {
	lc := logger.DefaultConfig()
	if debugOn {
		lc.Level = logger.DebugLevel
	}
	lc.JSON = logJSON
	logger.Init(lc)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	if rootDir != "" {
		return config.LoadDir(rootDir)
	}
	return config.Load("")
}

// projectRoot returns the absolute root directory.
func projectRoot() (string, error) {
	if rootDir != "" {
		return filepath.Abs(rootDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return wd, nil
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
