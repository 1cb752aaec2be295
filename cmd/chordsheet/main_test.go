package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
)

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name:  "explicit source from stdin",
			stdin: "[Am7]Hello [G/B]world",
			args:  []string{"convert", "--from", "bracket", "--to", "chord_over_lyric", "-"},
			want:  "Am7   G/B\nHello world\n",
		},
		{
			name:  "detected source",
			stdin: "[Am7]Hello [G/B]world",
			args:  []string{"convert", "--to", "bold"},
			want:  "**Am7**Hello **G/B**world\n",
		},
		{
			name:  "transposed",
			stdin: "[C]Hello [G]world",
			args:  []string{"convert", "--from", "bracket", "--from-key", "C", "--to-key", "D"},
			want:  "Key: D\n\n[D]Hello [A]world\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestConvert_File(t *testing.T) {
	path := writeFile(t, "song.txt", "[Am7]Hello [G/B]world")
	out, _, err := run(t, "", "convert", "--to", "bold", path)
	require.NoError(t, err)
	assert.Equal(t, "**Am7**Hello **G/B**world\n", out)

	_, _, err = run(t, "", "convert", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestConvert_JSON(t *testing.T) {
	out, _, err := run(t, "[C]Hi", "convert", "--from", "bracket", "--to", "bold", "--json")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "**C**Hi", res["output"])
}

func TestConvert_Failures(t *testing.T) {
	_, _, err := run(t, "[C]Hi", "convert", "--to", "sheet_music")
	assert.Error(t, err)

	_, _, err = run(t, "   ", "convert")
	assert.Error(t, err)

	_, _, err = run(t, "[C]Hi", "convert", "--recovery", "lenient")
	assert.Error(t, err)
}

func TestConvert_Store(t *testing.T) {
	dir := t.TempDir()
	_, stderr, err := run(t, "[C]Hello", "convert", "--from", "bracket", "--to", "bold", "--store", "dir:"+dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "stored conversion")

	store, err := storage.Open(context.Background(), "dir:"+dir)
	require.NoError(t, err)
	ids, err := storage.NewRepository(store).ListConversions(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestConvert_ConfigAndEnv(t *testing.T) {
	cfg := writeFile(t, "chordsheet.yaml", "to: bold\n")
	out, stderr, err := run(t, "[C]Hi", "convert", "--config", cfg, "--from", "bracket")
	require.NoError(t, err)
	assert.Equal(t, "**C**Hi\n", out)
	assert.Contains(t, stderr, "Using config file")

	t.Setenv("CHORDSHEET_TO", "chord_over_lyric")
	out, _, err = run(t, "[C]Hi", "convert", "--from", "bracket")
	require.NoError(t, err)
	assert.Equal(t, "C\nHi\n", out)

	// Flags win over the environment.
	out, _, err = run(t, "[C]Hi", "convert", "--from", "bracket", "--to", "bold")
	require.NoError(t, err)
	assert.Equal(t, "**C**Hi\n", out)

	_, _, err = run(t, "[C]Hi", "convert", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	out, _, err := run(t, "[Am7]Hello [G/B]world", "detect")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "bracket (confidence"), out)

	out, _, err = run(t, "[Am7]Hello [G/B]world", "detect", "--json")
	require.NoError(t, err)
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "bracket", res["format"])
}

func TestParse(t *testing.T) {
	out, _, err := run(t, "[C]Hello", "parse", "--format", "bracket")
	require.NoError(t, err)
	assert.Contains(t, out, `"schema_version": 1`)
	assert.Contains(t, out, `"kind": "text"`)

	out, _, err = run(t, "[C]Hello", "parse", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "schema_version: 1")
	assert.Contains(t, out, "kind: text")

	_, _, err = run(t, "[C]Hello", "parse", "--format", "midi")
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	out, _, err := run(t, "", "formats")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 6)
	assert.Contains(t, out, "(default)")
	assert.Contains(t, out, "chord_over_lyric")
}

func TestKey(t *testing.T) {
	out, _, err := run(t, "", "key", "G")
	require.NoError(t, err)
	assert.Contains(t, out, "Scale:      G A B C D E F#\n")
	assert.Contains(t, out, "Relative:   Em\n")
	assert.Contains(t, out, "Signature:  1 sharps, 0 flats\n")

	out, _, err = run(t, "", "key", "C#", "--json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "Db", info["enharmonic"])

	_, _, err = run(t, "", "key", "H")
	assert.Error(t, err)

	_, _, err = run(t, "", "key")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "chordsheet dev\n", out)
}
