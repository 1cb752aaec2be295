package song

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/Conceptual-Machines/chordsheet-api/pkg/embedded"
)

type keywordTable struct {
	Section     []string `yaml:"section"`
	Tempo       []string `yaml:"tempo"`
	Dynamics    []string `yaml:"dynamics"`
	Instruction []string `yaml:"instruction"`
}

type keywordSets struct {
	section     map[string]bool
	tempo       map[string]bool
	dynamics    map[string]bool
	instruction map[string]bool
}

var (
	keywordsOnce sync.Once
	keywords     keywordSets
)

func loadKeywords() keywordSets {
	keywordsOnce.Do(func() {
		var table keywordTable
		if err := yaml.Unmarshal(embedded.AnnotationKeywordsYAML, &table); err != nil {
			panic(fmt.Sprintf("embedded annotation keywords are invalid: %v", err))
		}
		keywords = keywordSets{
			section:     toSet(table.Section),
			tempo:       toSet(table.Tempo),
			dynamics:    toSet(table.Dynamics),
			instruction: toSet(table.Instruction),
		}
	})
	return keywords
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[fold(w)] = true
	}
	return set
}

// fold case-folds s. A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

func annotationWords(text string) []string {
	return strings.FieldsFunc(fold(text), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(":,;()[]{}*#_|", r)
	})
}

// IsSectionKeyword reports whether word names a song section. Trailing
// digits are ignored, so "verse2" and "Chorus" both qualify.
func IsSectionKeyword(word string) bool {
	w := strings.TrimRightFunc(fold(strings.TrimSpace(word)), unicode.IsDigit)
	return loadKeywords().section[w]
}

// LooksLikeSection reports whether text starts with a section keyword.
func LooksLikeSection(text string) bool {
	words := annotationWords(text)
	return len(words) > 0 && IsSectionKeyword(words[0])
}

// ClassifyAnnotation assigns annotation text to a class using keyword
// heuristics. Section keywords must lead; tempo, dynamics and instruction
// keywords may appear anywhere. Everything else is a comment.
func ClassifyAnnotation(text string) AnnotationType {
	words := annotationWords(text)
	if len(words) == 0 {
		return AnnotationComment
	}
	if IsSectionKeyword(words[0]) {
		return AnnotationSection
	}

	kw := loadKeywords()
	for _, w := range words {
		if kw.tempo[w] || strings.HasSuffix(w, "bpm") {
			return AnnotationTempo
		}
	}
	for _, w := range words {
		if kw.dynamics[w] {
			return AnnotationDynamics
		}
	}
	for _, w := range words {
		if kw.instruction[w] {
			return AnnotationInstruction
		}
	}
	return AnnotationComment
}
