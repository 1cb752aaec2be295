package main

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/transpose"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newKeyCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "key <key>",
		Short: "Describe a musical key",
		Long: `Key prints the scale, signature, relative and parallel keys of a key such
as "G", "F#m" or "Bb".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			info, err := transpose.Describe(args[0])
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			row := func(label, value string) { fmt.Fprintf(out, "%-12s%s\n", label+":", value) }
			row("Key", info.Key)
			row("Scale", strings.Join(info.Scale, " "))
			row("Signature", fmt.Sprintf("%d sharps, %d flats", info.Signature.Sharps, info.Signature.Flats))
			row("Relative", info.Relative)
			row("Parallel", info.Parallel)
			if info.Enharmonic != "" {
				row("Enharmonic", info.Enharmonic)
			}
			return nil
		},
	}
}
