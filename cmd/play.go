package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodraw/audio"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/session"
)

func init() {
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <melody.json>",
	Short: "Plays a saved melody",
	Long: `Schedules every note of a saved melody in real time. Sound goes to the
log backend, which prints each tone or sample as it is triggered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(cmd, args[0])
	},
}

func play(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()

	rec, err := readRecord(path)
	if err != nil {
		return err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	instruments, err := cfg.Instruments()
	if err != nil {
		return err
	}
	detector, err := newDetector(cat, nil)
	if err != nil {
		return err
	}

	s, err := session.New(session.Options{
		Catalog:     cat,
		Detector:    detector,
		Audio:       audio.NewContextManager(audio.NewLogBackendFactory(logger), nil, logger),
		Instruments: instruments,
		Instrument:  cfg.InstrumentKind(),
		Scheduler:   cfg.Scheduler(),
		Fader:       cfg.Fader(),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	s.Apply(rec)
	run := s.Play()
	if run == nil {
		return fmt.Errorf("%s has no notes", path)
	}
	logger.Info("Playing melody", logging.Fields{"title": rec.Title, "notes": len(rec.Notes)})

	select {
	case <-run.Done():
	case <-ctx.Done():
		s.Stop()
		return ctx.Err()
	}
	s.Stop()
	if n := run.Skipped(); n > 0 {
		logger.Warn("Notes skipped", logging.Fields{"skipped": n})
	}
	return nil
}
