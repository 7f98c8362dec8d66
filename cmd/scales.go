package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodraw/scales"
)

func init() {
	rootCmd.AddCommand(scalesCmd)
}

var scalesCmd = &cobra.Command{
	Use:   "scales [name]",
	Short: "Lists scales or prints the notes of one",
	Long:  `Without arguments lists every major and minor scale. With a scale name prints its drawable notes.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := cfg.Catalog()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, family := range []string{scales.Major, scales.Minor} {
				fmt.Fprintf(out, "%s: %s\n", family, strings.Join(cat.Names(family), ", "))
			}
			return nil
		}

		labels, ok := cat.Labels(args[0])
		if !ok {
			return fmt.Errorf("unknown scale %q", args[0])
		}
		fmt.Fprintln(out, strings.Join(labels, " "))
		return nil
	},
}
