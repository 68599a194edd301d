package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ocrprobe/internal/config"
	"ocrprobe/internal/logger"
)

var version = "1.0.0"

var (
	cfgFile   string
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ocrprobe",
	Short: "Run documents through Mistral OCR and summarise the results",
	Long: `ocrprobe uploads documents to the Mistral files API, requests a signed URL
for each upload and runs OCR on it with a Brazilian Portuguese image annotation
schema. Every raw OCR response is saved as test_results_<name>.json and a
short analysis of pages, images and markdown is printed.

Configuration is read from the environment (a .env file is loaded when
present) and optionally from a config file passed with --config.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		appConfig = cfg
		return nil
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
}
