package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/melody"
)

var (
	exportOut string
	exportBPM float64
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default <melody>.mid)")
	exportCmd.Flags().Float64Var(&exportBPM, "bpm", 0, "tempo in beats per minute (default from config)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <melody.json>",
	Short: "Writes a saved melody as a MIDI file",
	Long:  `Converts a saved melody to a single-track Standard MIDI File.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := readRecord(args[0])
		if err != nil {
			return err
		}

		bpm := exportBPM
		if bpm <= 0 {
			bpm = cfg.BPM
		}
		out := exportOut
		if out == "" {
			out = strings.TrimSuffix(args[0], ".json") + ".mid"
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := melody.ExportMIDI(f, rec.Notes, bpm); err != nil {
			return err
		}
		logger.Info("MIDI written", logging.Fields{"file": out, "notes": len(rec.Notes), "bpm": bpm})
		return f.Close()
	},
}
