// Package match classifies free-text crop labels against a known list using
// edit distance.
package match

import (
	"math"
	"regexp"

	"github.com/agnivade/levenshtein"
)

// NoMatch is returned when no candidate is close enough
const NoMatch = "None"

// Threshold is the largest edit distance still accepted as a match
const Threshold = 2

// DefaultCandidates are the crop labels known out of the box
var DefaultCandidates = []string{"wheat", "maize"}

// scales maps a crop label to the guide scale used for it
var scales = map[string]float64{
	"maize": 0.1850,
	"wheat": 0.30,
	NoMatch: 0.25,
}

var noise = regexp.MustCompile(`[0-9!@#$%^&*()_+{}\[\]:;<>,.?~\\/\s-]`)

// Clean strips digits, punctuation and whitespace
func Clean(s string) string {
	return noise.ReplaceAllString(s, "")
}

// FindBestMatch returns the candidate closest to input, or NoMatch when the
// best distance exceeds Threshold. Ties go to the earlier candidate. An empty
// candidate list means DefaultCandidates.
func FindBestMatch(input string, candidates []string) string {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}

	cleaned := Clean(input)
	closest := NoMatch
	minDistance := math.MaxInt
	for _, candidate := range candidates {
		if d := levenshtein.ComputeDistance(cleaned, candidate); d < minDistance {
			minDistance = d
			closest = candidate
		}
	}

	if minDistance <= Threshold {
		return closest
	}
	return NoMatch
}

// ScaleFor returns the guide scale for a label, falling back to the NoMatch scale
func ScaleFor(label string) float64 {
	if s, ok := scales[label]; ok {
		return s
	}
	return scales[NoMatch]
}
