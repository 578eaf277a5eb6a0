// Package cli wires the engine into its command-line surface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"formrunner/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "formrunner",
	Short:         "Batch contact form filling over a real browser",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger = newLogger(cfg.Logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
}

func newLogger(lc config.LoggerConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var sink io.Writer = os.Stderr
	if lc.Format == "console" {
		sink = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	if lc.File != "" {
		file := &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAgeDays,
		}
		sink = zerolog.MultiLevelWriter(sink, file)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(sink).Level(level).With().Timestamp().Logger()
}
