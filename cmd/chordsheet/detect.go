package main

import (
	"fmt"

	"github.com/Conceptual-Machines/chordsheet-api/internal/detect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDetectCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file|-]",
		Short: "Guess which dialect a chord sheet is written in",
		Long: `Detect scores the input against every dialect and prints the ranking,
best match first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			res := detect.Default().Detect(input)
			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (confidence %.2f)\n", res.Format, res.Confidence)
			for _, c := range res.Candidates {
				fmt.Fprintf(out, "  %-18s %.2f\n", c.Format, c.Confidence)
			}
			return nil
		},
	}
}
