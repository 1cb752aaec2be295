package song

import "strings"

// Format identifies a chord-sheet dialect.
type Format string

const (
	FormatBrace          Format = "brace"
	FormatBracket        Format = "bracket"
	FormatNashville      Format = "nashville"
	FormatChordOverLyric Format = "chord_over_lyric"
	FormatTab            Format = "tab"
	FormatBold           Format = "bold"
)

// Formats lists every dialect in declaration order. Detector ties break
// on this order.
var Formats = []Format{
	FormatBrace, FormatBracket, FormatNashville, FormatChordOverLyric, FormatTab, FormatBold,
}

// DefaultFormat is reported when detection has nothing to go on.
const DefaultFormat = FormatBracket

var fileExtensions = map[Format]string{
	FormatBrace:          ".cho",
	FormatBracket:        ".crd",
	FormatNashville:      ".nns",
	FormatChordOverLyric: ".txt",
	FormatTab:            ".tab",
	FormatBold:           ".md",
}

// ParseFormat accepts dialect ids case-insensitively, with '-' or ' ' in
// place of '_'.
func ParseFormat(s string) (Format, bool) {
	id := strings.ToLower(strings.TrimSpace(s))
	id = strings.NewReplacer("-", "_", " ", "_").Replace(id)
	for _, f := range Formats {
		if string(f) == id {
			return f, true
		}
	}
	return "", false
}

func (f Format) Valid() bool {
	_, ok := fileExtensions[f]
	return ok
}

// FileExtension is the conventional extension for files in this dialect.
func (f Format) FileExtension() string { return fileExtensions[f] }

func (f Format) String() string { return string(f) }

// FormatForExtension maps a file extension to its dialect. ".txt" is not
// claimed since plain text files hold every dialect.
func FormatForExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if ext == "" || ext == ".txt" {
		return "", false
	}
	for _, f := range Formats {
		if fileExtensions[f] == ext {
			return f, true
		}
	}
	return "", false
}
