package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

func attemptText(t *testing.T, h Handler, format song.Format, line string) (string, bool) {
	t.Helper()
	err := converr.New(converr.KindParse, "bad line")
	require.True(t, h.CanHandle(err))
	out, ok := h.Attempt(err, Input{Line: line, LineNumber: 1, Format: format, Reparse: plainReparse})
	if !ok {
		return "", false
	}
	tl, isText := out.(*song.TextLine)
	require.True(t, isText)
	return tl.Text, true
}

func TestInvalidChord(t *testing.T) {
	tests := []struct {
		name   string
		format song.Format
		input  string
		want   string
	}{
		{"lowercase root", song.FormatBracket, "[am]Hello", "[Am]Hello"},
		{"misplaced root", song.FormatBracket, "[m7A]Hello", "[Am7]Hello"},
		{"borrowed root", song.FormatBracket, "[G]Hi [H7]there", "[G]Hi [G7]there"},
		{"respelled root", song.FormatBracket, "[E#]Hello", "[F]Hello"},
		{"unfixable becomes text", song.FormatBracket, "[xyz]Hello", "xyzHello"},
		{"brace tokens", song.FormatBrace, "{am}Amazing", "{Am}Amazing"},
		{"bold tokens", song.FormatBold, "**H7**Hi", "H7Hi"},
		{"chord line keeps columns", song.FormatChordOverLyric, "am    G", "Am    G"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := attemptText(t, InvalidChord{}, tt.format, tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := attemptText(t, InvalidChord{}, song.FormatNashville, "1 4 x")
	assert.False(t, ok)
	_, ok = attemptText(t, InvalidChord{}, song.FormatBracket, "[G]fine")
	assert.False(t, ok)
}

func TestMalformedSection(t *testing.T) {
	tests := []struct {
		input string
		typ   song.AnnotationType
		text  string
	}{
		{"[Chorus", song.AnnotationSection, "Chorus"},
		{"{start_of_verse", song.AnnotationSection, "verse"},
		{"Bridge:", song.AnnotationSection, "Bridge"},
		{"# Notes", song.AnnotationComment, "Notes"},
	}
	err := converr.New(converr.KindFormat, "bad header")
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, ok := MalformedSection{}.Attempt(err, Input{Line: tt.input})
			require.True(t, ok)
			a := out.(*song.AnnotationLine)
			assert.Equal(t, tt.typ, a.Type)
			assert.Equal(t, tt.text, a.Text)
		})
	}

	for _, line := range []string{"Amazing grace", "[G]Amazing grace", "[]"} {
		_, ok := MalformedSection{}.Attempt(err, Input{Line: line})
		assert.False(t, ok, line)
	}
}

func TestBalance(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"[Am Hello", "[Am] Hello"},
		{"Hello] [G]world", "Hello [G]world"},
		{"{C}Amazing {G", "{C}Amazing {G}"},
		{"[Am[G]x", "[Am][G]x"},
		{"**G Amazing", "**G** Amazing"},
		{"(x", "(x)"},
		{"[G]fine", "[G]fine"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Balance(tt.input))
		})
	}

	_, ok := attemptText(t, BracketBalance{}, song.FormatBracket, "[G]fine")
	assert.False(t, ok)
}

func TestCleanEncoding(t *testing.T) {
	assert.Equal(t, "C#", CleanEncoding("C\u266f"))
	assert.Equal(t, "Hello world", CleanEncoding("\ufeffHello\u00a0world"))
	assert.Equal(t, "caf\u00e9", CleanEncoding("cafe\u0301"))
	assert.Equal(t, "don't", CleanEncoding("don\u2019t"))
	assert.Equal(t, "ab", CleanEncoding("a\x00b\xff"))

	_, ok := attemptText(t, Encoding{}, song.FormatBracket, "plain")
	assert.False(t, ok)
}

func TestWhitespaceAndSpecialChar(t *testing.T) {
	assert.Equal(t, "G   C", ExpandTabs("G\tC"))
	assert.Equal(t, "    X", ExpandTabs("\tX"))

	got, ok := attemptText(t, Whitespace{}, song.FormatChordOverLyric, "G\tC  ")
	require.True(t, ok)
	assert.Equal(t, "G   C", got)

	got, ok = attemptText(t, SpecialChar{}, song.FormatBracket, "Hello \u263a world")
	require.True(t, ok)
	assert.Equal(t, "Hello  world", got)
}

func TestDialectHandlers(t *testing.T) {
	tests := []struct {
		format song.Format
		input  string
		want   string
	}{
		{song.FormatBrace, "{Title Amazing Grace}", "{title: Amazing Grace}"},
		{song.FormatBracket, "(Am)Hello", "[Am]Hello"},
		{song.FormatNashville, "1 8 5 9m", "1 1 5 2m"},
		{song.FormatTab, "e|--0--|", "e|--0--|"},
		{song.FormatBold, "__G__Hi *C*there", "**G**Hi **C**there"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			hs := DialectHandlers(tt.format)
			require.Len(t, hs, 1)
			got, ok := attemptText(t, hs[0], tt.format, tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Empty(t, DialectHandlers(song.FormatChordOverLyric))
}

func TestFallback(t *testing.T) {
	err := converr.New(converr.KindParse, "bad")
	out, ok := Fallback{}.Attempt(err, Input{Line: ""})
	require.True(t, ok)
	assert.Equal(t, &song.EmptyLine{Count: 1}, out)

	out, ok = Fallback{}.Attempt(err, Input{Line: "[G broken"})
	require.True(t, ok)
	assert.Equal(t, "[G broken", out.(*song.TextLine).Text)
	assert.Empty(t, out.(*song.TextLine).Chords)
}
