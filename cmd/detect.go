package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodraw/algorithms/tonal"
)

var detectJSON bool

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:   "detect <audio-file>",
	Short: "Estimates the key of an audio file",
	Long:  `Decodes an audio file with ffmpeg and estimates its musical key.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return detect(cmd, args[0])
	},
}

func detect(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()

	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	detector, err := newDetector(cat, nil)
	if err != nil {
		return err
	}

	data, err := newDecoder().DecodeFile(ctx, path)
	if err != nil {
		return err
	}
	res, err := detector.Detect(ctx, data.Buffer())
	if err != nil {
		return err
	}

	if detectJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if res.Key == tonal.Unknown {
		fmt.Fprintf(cmd.ErrOrStderr(), "no key found in %s\n", path)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Key)
	return nil
}
