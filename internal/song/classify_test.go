package song

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAnnotation(t *testing.T) {
	tests := []struct {
		text string
		want AnnotationType
	}{
		{"Verse 1", AnnotationSection},
		{"CHORUS", AnnotationSection},
		{"Pre-Chorus:", AnnotationSection},
		{"verse2", AnnotationSection},
		{"Tempo 120", AnnotationTempo},
		{"96 BPM", AnnotationTempo},
		{"play softly", AnnotationDynamics},
		{"mf", AnnotationDynamics},
		{"Repeat x2", AnnotationInstruction},
		{"Capo 2", AnnotationInstruction},
		{"Written in 1779", AnnotationComment},
		{"", AnnotationComment},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAnnotation(tt.text))
		})
	}
}

func TestIsSectionKeyword(t *testing.T) {
	assert.True(t, IsSectionKeyword("Bridge"))
	assert.True(t, IsSectionKeyword(" outro3 "))
	assert.False(t, IsSectionKeyword("grace"))
	assert.True(t, LooksLikeSection("[Chorus]"))
	assert.False(t, LooksLikeSection("Amazing grace"))
}
