package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/google/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iliyamo/fest-registration/internal/config"
)

var (
	cfgFile string
	envFile string
	cfg     config.Config
	logs    *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:               "festd",
	Short:             "Tech fest registration backend",
	Long:              `festd serves the fest registration API and runs its maintenance tasks: migrations, the notification worker, imports and exports.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logs != nil {
			logs.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd, migrateCmd, workerCmd, seedCmd, exportSheetCmd, createAdminCmd)
}

// setup loads the dotenv file, the configuration and the logger. A missing
// dotenv file is fine; a broken one is not.
func setup(cmd *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var err error
	if cfg, err = config.Load(viper.New(), cfgFile); err != nil {
		return err
	}

	var out io.Writer = io.Discard
	verbose := cfg.App.Verbose
	if cfg.App.LogFile != "" {
		f, err := os.OpenFile(cfg.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = f
	} else {
		verbose = true
	}
	logs = logger.Init(cmd.Root().Name(), verbose, false, out)
	return nil
}
