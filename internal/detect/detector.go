// Package detect scores chord-sheet text against each dialect's weighted
// indicators and estimates a song's key from its chords.
package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
	"github.com/Conceptual-Machines/chordsheet-api/pkg/embedded"
	"gopkg.in/yaml.v3"
)

const (
	repeatBoostStep  = 0.1
	repeatBoostCap   = 0.5
	densityThreshold = 0.01
	densityBoost     = 1.2
	noiseFloor       = 0.1
)

// Indicator is one weighted pattern.
type Indicator struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  float64
}

// Candidate is a dialect with its confidence in [0,1].
type Candidate struct {
	Format     song.Format `json:"format"`
	Confidence float64     `json:"confidence"`
}

// Result is the top candidate plus the full ranking.
type Result struct {
	Format     song.Format `json:"format"`
	Confidence float64     `json:"confidence"`
	Candidates []Candidate `json:"candidates"`
}

// Detector ranks dialects. It is read-only after construction and safe to
// share between goroutines.
type Detector struct {
	indicators map[song.Format][]Indicator
	totals     map[song.Format]float64
}

type indicatorFile struct {
	Formats map[string][]struct {
		Name    string  `yaml:"name"`
		Pattern string  `yaml:"pattern"`
		Weight  float64 `yaml:"weight"`
	} `yaml:"formats"`
}

// Load builds a detector from a YAML indicator table.
func Load(data []byte) (*Detector, error) {
	var file indicatorFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse indicator table: %w", err)
	}

	d := &Detector{
		indicators: make(map[song.Format][]Indicator),
		totals:     make(map[song.Format]float64),
	}
	for id, entries := range file.Formats {
		format, ok := song.ParseFormat(id)
		if !ok {
			return nil, fmt.Errorf("indicator table names unknown format %q", id)
		}
		for _, e := range entries {
			if e.Weight <= 0 {
				return nil, fmt.Errorf("indicator %s/%s must have a positive weight", id, e.Name)
			}
			re, err := regexp.Compile(e.Pattern)
			if err != nil {
				return nil, fmt.Errorf("indicator %s/%s: %w", id, e.Name, err)
			}
			d.indicators[format] = append(d.indicators[format], Indicator{Name: e.Name, Pattern: re, Weight: e.Weight})
			d.totals[format] += e.Weight
		}
	}
	return d, nil
}

var (
	defaultOnce     sync.Once
	defaultDetector *Detector
)

// Default returns the detector built from the embedded indicator table.
func Default() *Detector {
	defaultOnce.Do(func() {
		d, err := Load(embedded.IndicatorsYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded indicator table is invalid: %v", err))
		}
		defaultDetector = d
	})
	return defaultDetector
}

// Detect ranks every dialect for text. Blank input yields the default
// dialect with confidence 0.
func (d *Detector) Detect(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Format: song.DefaultFormat, Confidence: 0, Candidates: zeroCandidates()}
	}

	length := utf8.RuneCountInString(text)
	candidates := make([]Candidate, 0, len(song.Formats))
	for _, f := range song.Formats {
		candidates = append(candidates, Candidate{Format: f, Confidence: d.score(f, text, length)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	top := candidates[0]
	if top.Confidence == 0 {
		return Result{Format: song.DefaultFormat, Confidence: 0, Candidates: candidates}
	}
	return Result{Format: top.Format, Confidence: top.Confidence, Candidates: candidates}
}

// Score returns a single dialect's confidence.
func (d *Detector) Score(f song.Format, text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return d.score(f, text, utf8.RuneCountInString(text))
}

func (d *Detector) score(f song.Format, text string, length int) float64 {
	total := d.totals[f]
	if total == 0 {
		return 0
	}

	sum := 0.0
	for _, ind := range d.indicators[f] {
		n := len(ind.Pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		contribution := ind.Weight
		if n > 1 {
			boost := repeatBoostStep * float64(n-1)
			if boost > repeatBoostCap {
				boost = repeatBoostCap
			}
			contribution *= 1 + boost
		}
		if float64(n)/float64(length) > densityThreshold {
			contribution *= densityBoost
		}
		sum += contribution
	}

	score := sum / total
	if score > 1 {
		score = 1
	}
	if score <= noiseFloor {
		return 0
	}
	return score
}

func zeroCandidates() []Candidate {
	out := make([]Candidate, 0, len(song.Formats))
	for _, f := range song.Formats {
		out = append(out, Candidate{Format: f})
	}
	return out
}
