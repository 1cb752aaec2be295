package chord

import (
	"fmt"

	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
)

// ValidationResult collects every rule violation. Warnings never make a
// chord invalid.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type rule func(c Components, r *ValidationResult)

// rules run in order; each may append errors or warnings.
var rules = []rule{
	checkRoot,
	checkBass,
	checkQuality,
	checkExtensions,
	checkIncompatible,
	checkTensions,
}

// Validate applies the chord rule set to parsed components.
func Validate(c Components) ValidationResult {
	r := ValidationResult{Errors: []string{}, Warnings: []string{}}
	for _, check := range rules {
		check(c, &r)
	}
	r.IsValid = len(r.Errors) == 0
	return r
}

func checkRoot(c Components, r *ValidationResult) {
	if c.Root == "" {
		r.Errors = append(r.Errors, "chord root is required")
		return
	}
	if !music.IsValidRoot(c.Root) {
		r.Errors = append(r.Errors, fmt.Sprintf("invalid root %q", c.Root))
	}
}

func checkBass(c Components, r *ValidationResult) {
	if c.Bass == "" {
		return
	}
	if !music.IsValidRoot(c.Bass) {
		r.Errors = append(r.Errors, fmt.Sprintf("invalid bass note %q", c.Bass))
		return
	}
	if c.Bass == c.Root {
		r.Warnings = append(r.Warnings, fmt.Sprintf("bass note %s equals root", c.Bass))
	}
}

func checkQuality(c Components, r *ValidationResult) {
	if !c.Quality.Valid() {
		r.Errors = append(r.Errors, fmt.Sprintf("invalid quality %q", c.Quality))
	}
}

func checkExtensions(c Components, r *ValidationResult) {
	for _, e := range c.Extensions {
		if e.Type == ExtOther || !knownExtensions[e.Value] {
			r.Warnings = append(r.Warnings, fmt.Sprintf("unknown extension %q", e.Value))
		}
	}
}

func checkIncompatible(c Components, r *ValidationResult) {
	has := values(c.Extensions)
	if has["sus2"] && has["sus4"] {
		r.Errors = append(r.Errors, "sus2 and sus4 cannot be combined")
	}
	if has["#5"] && has["b5"] {
		r.Errors = append(r.Errors, "#5 and b5 cannot be combined")
	}
	if has["no3"] {
		switch c.Quality {
		case Minor, Diminished, Augmented:
			r.Errors = append(r.Errors, fmt.Sprintf("no3 conflicts with %s quality, which defines a third", c.Quality))
		}
	}
}

func checkTensions(c Components, r *ValidationResult) {
	has := values(c.Extensions)
	if c.Quality == Augmented && has["#5"] {
		r.Warnings = append(r.Warnings, "#5 is redundant on an augmented chord")
	}
	if c.Quality == Augmented && has["b5"] {
		r.Warnings = append(r.Warnings, "b5 on an augmented chord is unusual")
	}
	if c.Quality == Diminished && has["maj7"] {
		r.Warnings = append(r.Warnings, "maj7 on a diminished chord is unusual")
	}
	if has["7"] && has["maj7"] {
		r.Warnings = append(r.Warnings, "7 and maj7 both present")
	}
	if c.Quality == Minor && has["#9"] {
		r.Warnings = append(r.Warnings, "#9 on a minor chord duplicates the minor third")
	}
	if has["5"] && len(c.Extensions) > 1 {
		r.Warnings = append(r.Warnings, "power chord with additional extensions")
	}
}

func values(exts []Extension) map[string]bool {
	out := make(map[string]bool, len(exts))
	for _, e := range exts {
		out[e.Value] = true
	}
	return out
}
