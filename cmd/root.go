// Package cmd wires the command line interface: report crawling,
// document ingestion and question answering over the collected corpus.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
)

var (
	flagProfile  string
	flagEnvFile  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "energyrag",
	Short: "Collect Korean energy research reports and answer questions about them",
	Long: `energyrag crawls energy research publications from several Korean
sites, mirrors the PDFs to NAS storage, and serves a multi-agent
question-answering pipeline over the ingested documents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "environment profile (.env_{profile} or .env.{profile})")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "explicit env file path")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug|info|warn|error)")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration with the global profile flags.
func loadConfig() (*config.Config, error) {
	return config.Load(flagProfile, flagEnvFile)
}

// newLogger builds the run logger; it falls back to stderr-only logging
// when the log directory is not writable.
func newLogger(cfg *config.Config) *log.GologLogger {
	level := log.ParseLevel(flagLogLevel)
	logger, err := log.NewRunLogger(cfg.Storage.LogDir, level)
	if err != nil {
		logger = log.NewGologLogger(level)
		logger.Warn("log file unavailable, logging to stderr only: %v", err)
	}
	return logger
}
