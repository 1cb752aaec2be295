package recovery

import (
	"regexp"
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// DialectHandlers returns the permissive-mode handlers for a dialect.
func DialectHandlers(f song.Format) []Handler {
	switch f {
	case song.FormatBrace:
		return []Handler{directiveRepair}
	case song.FormatBracket:
		return []Handler{parenChords}
	case song.FormatNashville:
		return []Handler{degreeWrap}
	case song.FormatTab:
		return []Handler{staffLine}
	case song.FormatBold:
		return []Handler{boldMarkers}
	}
	return nil
}

func lineFailure(err *converr.ConversionError) bool {
	return isKind(err, converr.KindParse, converr.KindFormat, converr.KindValidation)
}

var knownDirectives = map[string]bool{
	"title": true, "t": true, "subtitle": true, "st": true, "artist": true,
	"key": true, "tempo": true, "time": true, "capo": true,
	"comment": true, "c": true, "ci": true,
}

// "{Title Amazing Grace}" and "{TITLE=Amazing Grace}" become "{title: Amazing Grace}".
var looseDirective = regexp.MustCompile(`\{\s*([A-Za-z_]+)\s*(?:=|\s)\s*([^:}][^}]*)\}`)

var directiveRepair = Func{
	HandlerName: "brace_directive",
	Match:       lineFailure,
	Fix: func(_ *converr.ConversionError, in Input) (song.Line, bool) {
		repaired := looseDirective.ReplaceAllStringFunc(in.Line, func(m string) string {
			sub := looseDirective.FindStringSubmatch(m)
			name := strings.ToLower(sub[1])
			if !knownDirectives[name] {
				return m
			}
			return "{" + name + ": " + strings.TrimSpace(sub[2]) + "}"
		})
		if repaired == in.Line {
			return nil, false
		}
		return in.reparse(repaired)
	},
}

var parenChord = regexp.MustCompile(`\(([A-G][#b]?[^()\s]*)\)`)

// parenChords rewrites "(Am)" as "[Am]" when the contents are a chord.
var parenChords = Func{
	HandlerName: "bracket_paren_chords",
	Match:       lineFailure,
	Fix: func(_ *converr.ConversionError, in Input) (song.Line, bool) {
		repaired := parenChord.ReplaceAllStringFunc(in.Line, func(m string) string {
			inner := m[1 : len(m)-1]
			if !chord.IsValid(inner) {
				return m
			}
			return "[" + inner + "]"
		})
		if repaired == in.Line {
			return nil, false
		}
		return in.reparse(repaired)
	},
}

var octaveDegree = regexp.MustCompile(`(^|\s)([~>'!<]*[b#]?)([89])`)

// degreeWrap reads degrees 8 and 9 as 1 and 2 an octave up.
var degreeWrap = Func{
	HandlerName: "nashville_degree_wrap",
	Match:       lineFailure,
	Fix: func(_ *converr.ConversionError, in Input) (song.Line, bool) {
		repaired := octaveDegree.ReplaceAllStringFunc(in.Line, func(m string) string {
			sub := octaveDegree.FindStringSubmatch(m)
			degree := "1"
			if sub[3] == "9" {
				degree = "2"
			}
			return sub[1] + sub[2] + degree
		})
		if repaired == in.Line {
			return nil, false
		}
		return in.reparse(repaired)
	},
}

var staffPattern = regexp.MustCompile(`^\s*[eBGDAEbgda]\s*\|`)

// staffLine keeps tablature staff lines as text instead of reporting them.
var staffLine = Func{
	HandlerName: "tab_staff_line",
	Fix: func(_ *converr.ConversionError, in Input) (song.Line, bool) {
		if !staffPattern.MatchString(in.Line) {
			return nil, false
		}
		return song.PlainText(in.Line), true
	},
}

var (
	underscoreChord = regexp.MustCompile(`__([A-G][#b]?[^_\s]*)__`)
	starChord       = regexp.MustCompile(`\*+([A-G][#b]?[^*\s]*)\*+`)
)

// boldMarkers normalises "__G__", "*G*" and "***G***" to "**G**".
var boldMarkers = Func{
	HandlerName: "bold_markers",
	Match:       lineFailure,
	Fix: func(_ *converr.ConversionError, in Input) (song.Line, bool) {
		repaired := underscoreChord.ReplaceAllString(in.Line, "**$1**")
		repaired = starChord.ReplaceAllString(repaired, "**$1**")
		if repaired == in.Line {
			return nil, false
		}
		return in.reparse(repaired)
	},
}
