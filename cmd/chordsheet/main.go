// Package main is the chordsheet command line tool. It runs the same
// conversion engine as the API against local files and stdin.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "chordsheet",
		Short: "Convert chord sheets between notation dialects",
		Long: `chordsheet reads chord sheets written in brace, bracket, nashville,
chord-over-lyric, tab or bold notation and rewrites them in any other
dialect, optionally transposing to a new key on the way.

Input comes from a file argument or stdin ("-"). Defaults for every flag
can be set in chordsheet.yaml or through CHORDSHEET_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
	}

	root.PersistentFlags().String("config", "", "config file (default: ./chordsheet.yaml or ~/.config/chordsheet/config.yaml)")
	root.PersistentFlags().Bool("json", false, "print results as JSON")
	root.PersistentFlags().BoolP("verbose", "v", false, "log pipeline stages to stderr")

	root.AddCommand(
		newConvertCmd(v),
		newDetectCmd(v),
		newParseCmd(v),
		newFormatsCmd(v),
		newKeyCmd(v),
		newVersionCmd(),
	)
	return root
}

func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("chordsheet")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "chordsheet"))
		}
	}

	v.SetEnvPrefix("CHORDSHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	return nil
}

// readInput returns the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
