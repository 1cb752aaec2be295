package detect

import (
	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
)

// Candidate tonic spellings, indexed by pitch class.
var (
	majorKeyNames = [12]string{"C", "Db", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}
	minorKeyNames = [12]string{"Cm", "C#m", "Dm", "Ebm", "Em", "Fm", "F#m", "Gm", "G#m", "Am", "Bbm", "Bm"}
)

// Degree weights: tonic, dominant and subdominant hits count more than
// other diatonic roots.
var degreeWeights = [8]float64{0, 3, 1, 1, 2, 2, 1, 1}

// Triad qualities expected on each degree of the major and natural minor
// scales. Index 0 is unused.
var (
	majorTriads = [8]chord.Quality{"", chord.Major, chord.Minor, chord.Minor, chord.Major, chord.Major, chord.Minor, chord.Diminished}
	minorTriads = [8]chord.Quality{"", chord.Minor, chord.Diminished, chord.Major, chord.Minor, chord.Minor, chord.Major, chord.Major}
)

const (
	qualityBonus  = 0.5
	boundaryBonus = 2.0
)

// KeyEstimate is a key guessed from chord roots.
type KeyEstimate struct {
	Key        music.Key `json:"-"`
	Name       string    `json:"key"`
	Confidence float64   `json:"confidence"`
}

// EstimateKey scores all 24 major and minor keys against the chords and
// returns the best. ok is false when there are no chords.
func EstimateKey(chords []chord.Chord) (est KeyEstimate, ok bool) {
	if len(chords) == 0 {
		return KeyEstimate{}, false
	}

	maxScore := float64(len(chords))*(degreeWeights[1]+qualityBonus) + 2*boundaryBonus
	bestScore := -1.0
	for pitch := 0; pitch < 12; pitch++ {
		for _, name := range []string{majorKeyNames[pitch], minorKeyNames[pitch]} {
			key := music.MustKey(name)
			s := scoreKey(key, chords)
			if s > bestScore {
				bestScore = s
				est = KeyEstimate{Key: key, Name: key.String()}
			}
		}
	}

	est.Confidence = bestScore / maxScore
	if est.Confidence < 0 {
		est.Confidence = 0
	}
	return est, true
}

func scoreKey(key music.Key, chords []chord.Chord) float64 {
	triads := majorTriads
	if key.Minor {
		triads = minorTriads
	}

	score := 0.0
	for _, c := range chords {
		degree := key.DegreeOf(c.Root().ChromaticIndex())
		if degree == 0 {
			continue
		}
		score += degreeWeights[degree]
		if triadQuality(c.Quality()) == triads[degree] {
			score += qualityBonus
		}
	}

	tonic := key.PitchClass()
	if chords[0].Root().ChromaticIndex() == tonic {
		score += boundaryBonus
	}
	if chords[len(chords)-1].Root().ChromaticIndex() == tonic {
		score += boundaryBonus
	}
	return score
}

// triadQuality folds a chord quality onto the triad it implies.
func triadQuality(q chord.Quality) chord.Quality {
	switch q {
	case chord.Dominant, chord.Suspended:
		return chord.Major
	default:
		return q
	}
}
