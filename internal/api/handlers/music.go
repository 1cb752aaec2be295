package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
	"github.com/Conceptual-Machines/chordsheet-api/internal/transpose"
	"github.com/gin-gonic/gin"
)

type ValidateChordRequest struct {
	Chord string `json:"chord" binding:"required"`
	// Key is optional. With it the response carries the chord's function
	// and Nashville number.
	Key string `json:"key,omitempty"`
}

type ChordResponse struct {
	Input      string                 `json:"input"`
	Notation   string                 `json:"notation"` // "letter" or "nashville"
	Valid      bool                   `json:"valid"`
	Components *chord.Components      `json:"components,omitempty"`
	Validation chord.ValidationResult `json:"validation"`
	Chord      *chord.Chord           `json:"chord,omitempty"`
	Canonical  string                 `json:"canonical,omitempty"`
	Nashville  string                 `json:"nashville,omitempty"`
	Function   string                 `json:"function,omitempty"`
}

// ValidateChord parses a letter or Nashville chord and reports rule
// violations.
func ValidateChord(c *gin.Context) {
	var req ValidateChordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var key *music.Key
	if req.Key != "" {
		k, err := music.ParseKey(req.Key)
		if err != nil {
			ce := converr.Wrap(converr.KindKey, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": ce.Message, "details": ce})
			return
		}
		key = &k
	}

	resp, err := inspectChord(req.Chord, key)
	if err != nil {
		ce := converr.Wrap(converr.KindValidation, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ce.Message, "details": ce, "valid": false})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func inspectChord(text string, key *music.Key) (ChordResponse, error) {
	resp := ChordResponse{Input: text, Notation: "letter"}

	comps, err := chord.Parse(text)
	if err != nil {
		n, nerr := chord.ParseNashville(text)
		if nerr != nil {
			return resp, err
		}
		return inspectNashville(text, n, key)
	}

	resp.Components = &comps
	resp.Validation = chord.Validate(comps)
	resp.Valid = resp.Validation.IsValid
	if !resp.Valid {
		return resp, nil
	}

	ch := chord.FromComponents(comps)
	resp.Chord = &ch
	resp.Canonical = ch.Canonical()
	if key != nil {
		resp.Nashville = chord.FromLetter(ch, *key).String()
		if numeral, ok := transpose.Function(ch, key.String()); ok {
			resp.Function = numeral
		}
	}
	return resp, nil
}

func inspectNashville(text string, n chord.NashvilleChord, key *music.Key) (ChordResponse, error) {
	// ParseNashville already validated n.
	resp := ChordResponse{
		Input:      text,
		Notation:   "nashville",
		Valid:      true,
		Nashville:  n.String(),
		Validation: chord.ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}},
	}
	if key != nil {
		ch, err := n.ToChord(*key)
		if err != nil {
			return resp, err
		}
		resp.Chord = &ch
		resp.Canonical = ch.Canonical()
	}
	return resp, nil
}

// DescribeKey returns signature, scale and related keys.
func DescribeKey(c *gin.Context) {
	info, err := transpose.Describe(c.Param("key"))
	if err != nil {
		ce := converr.Wrap(converr.KindKey, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": ce.Message, "details": ce})
		return
	}
	c.JSON(http.StatusOK, info)
}
