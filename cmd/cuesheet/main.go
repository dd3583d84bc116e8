package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/teranos/cuesheet/config"
	"github.com/teranos/cuesheet/internal/logging"
)

// EnvLogLevel overrides the configured log level.
const EnvLogLevel = "CUESHEET_LOG_LEVEL"

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// app is what every subcommand receives once the root has run.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	debug      bool

	cfg *config.Config
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "cuesheet",
		Short:         "Play, film and check timed cue sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $"+config.EnvConfig+" or "+config.DefaultPath+")")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(playCmd(a), framesCmd(a), validateCmd(a))
	return cmd
}

// setup loads .env, the config file and the logger, in that order, so both
// files can set the log level and flags still win.
func (a *app) setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if env := os.Getenv(EnvLogLevel); env != "" {
		opts.Level = env
	}
	if a.logLevel != "" {
		opts.Level = a.logLevel
	}
	if a.logFormat != "" {
		opts.Format = a.logFormat
	}
	if a.debug {
		opts.Level = logging.LevelDebug
	}

	_, err = logging.Configure(opts)
	return err
}
