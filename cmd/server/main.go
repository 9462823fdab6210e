package main

import (
	"os"

	"github.com/dkeye/voxify/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "voxify-relay",
	Short:         "Room presence and WebRTC signaling relay for voxify voice channels and calls",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serveCmd.RunE,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default config/config.$CONFIG_ENV.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("voxify-relay failed")
		os.Exit(1)
	}
}

// loadConfig reads the config and switches the global logger to its mode.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	setupLogger(cfg)
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
