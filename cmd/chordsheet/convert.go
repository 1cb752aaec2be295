package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
	"github.com/Conceptual-Machines/chordsheet-api/internal/logger"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConvertCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [file|-]",
		Short: "Convert a chord sheet to another dialect",
		Long: `Convert parses the input, optionally transposes it, and renders it in the
target dialect. The source dialect is detected when --from is not given.

Line-level problems are reported on stderr and do not stop the conversion.
With --store the result, canonical model and input are persisted to
memory, dir:<path>, sqlite:<path> or s3://<bucket>/<prefix>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var persister engine.Persister
			if spec := v.GetString("store"); spec != "" {
				store, err := storage.Open(ctx, spec)
				if err != nil {
					return err
				}
				defer storage.Close(store)
				persister = storage.NewRepository(store)
			}

			eng, err := newEngine(v, persister)
			if err != nil {
				return err
			}
			res := eng.Convert(ctx, engine.Request{
				Input:        input,
				SourceFormat: song.Format(v.GetString("from")),
				TargetFormat: song.Format(v.GetString("to")),
				FromKey:      v.GetString("from-key"),
				ToKey:        v.GetString("to-key"),
				RecoveryMode: v.GetString("recovery"),
				Persist:      persister != nil,
			})

			if v.GetBool("json") {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printDiagnostics(cmd.ErrOrStderr(), res.Errors, res.Warnings)
				if res.Success {
					fmt.Fprint(cmd.OutOrStdout(), withNewline(res.Output))
				}
			}
			if !res.Success {
				return fmt.Errorf("conversion failed: %v", res.FirstError())
			}
			if res.Metadata.Persisted {
				fmt.Fprintf(cmd.ErrOrStderr(), "stored conversion %s\n", res.Metadata.RequestID)
			}
			return nil
		},
	}

	cmd.Flags().String("from", "", "source dialect (detected when empty)")
	cmd.Flags().String("to", string(song.DefaultFormat), "target dialect")
	cmd.Flags().String("from-key", "", "key the input is written in")
	cmd.Flags().String("to-key", "", "key to transpose to")
	cmd.Flags().String("recovery", "", "recovery mode: strict, moderate or permissive")
	cmd.Flags().String("store", "", "persist the result: memory, dir:<path>, sqlite:<path> or s3://<bucket>/<prefix>")
	return cmd
}

// newEngine builds an engine with the built-in dialects. --verbose
// routes pipeline events to the logger.
func newEngine(v *viper.Viper, store engine.Persister) (*engine.Engine, error) {
	var bus *events.Bus
	if v.GetBool("verbose") {
		bus = events.NewBus()
		logger.Subscribe(bus)
	}
	deps := engine.DefaultDeps(bus, store)
	deps.DefaultTarget = song.DefaultFormat
	return engine.New(deps)
}

func printDiagnostics(w io.Writer, errs []*converr.ConversionError, warnings []string) {
	for _, e := range errs {
		fmt.Fprintf(w, "error: %v\n", e)
	}
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
