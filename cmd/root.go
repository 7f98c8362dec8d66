// Package cmd is the melodraw command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodraw/config"
	"github.com/RyanBlaney/melodraw/logging"
)

var (
	configPath string
	logLevel   string
	noColor    bool

	cfg    *config.Config
	logger logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "melodraw",
	Short: "Key detection and drawn-melody playback",
	Long: `melodraw estimates the key of an audio file and plays back melodies
drawn over the notes of a scale.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		cfg = loaded

		l := logging.NewDefaultLogger()
		l.SetLevel(cfg.Level())
		logging.SetGlobalLogger(l)
		if noColor {
			logging.DisableColors()
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $MELODRAW_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored log output")
}

// Execute runs the command line until it finishes or SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}
