package main

import (
	"fmt"

	"github.com/Conceptual-Machines/chordsheet-api/internal/dialect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type formatInfo struct {
	ID        song.Format `json:"id"`
	Extension string      `json:"extension"`
	Default   bool        `json:"default,omitempty"`
}

func newFormatsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			var infos []formatInfo
			for _, f := range dialect.DefaultRegistry().Formats() {
				infos = append(infos, formatInfo{ID: f, Extension: f.FileExtension(), Default: f == song.DefaultFormat})
			}
			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), infos)
			}
			for _, info := range infos {
				marker := ""
				if info.Default {
					marker = " (default)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s%s\n", info.ID, info.Extension, marker)
			}
			return nil
		},
	}
}
