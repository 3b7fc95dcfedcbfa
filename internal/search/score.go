package search

import (
	"regexp"
	"strings"

	"github.com/hbollon/go-edlib"
)

// numberRE extracts numeric sequences from names.
var numberRE = regexp.MustCompile(`\b(\d+)\b`)

// Confidence buckets a similarity score.
type Confidence int

const (
	ConfidenceNone   Confidence = iota // score < 0.70
	ConfidenceLow                      // score >= 0.70
	ConfidenceMedium                   // score >= 0.85
	ConfidenceHigh                     // score >= 0.95
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// Similarity scores how well a candidate artist name matches the
// query. Jaro-Winkler favors shared prefixes, which suits names; the
// score is then adjusted for numeric parts so "Maroon 5" does not
// resolve to a plain "Maroon".
func Similarity(query, candidate string) float64 {
	nq := normalize(query)
	nc := normalize(candidate)
	score := float64(edlib.JaroWinklerSimilarity(nq, nc))
	return adjustForNumbers(score, numberRE.FindAllString(nq, -1), numberRE.FindAllString(nc, -1))
}

// normalize lowercases and collapses whitespace for comparison.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// adjustForNumbers applies a bonus when numeric parts of the query
// appear in the candidate and a penalty when they are missing or
// different.
func adjustForNumbers(score float64, queryNums, candidateNums []string) float64 {
	if len(queryNums) == 0 {
		return score
	}
	if len(candidateNums) == 0 {
		return score * 0.85
	}

	candidateSet := make(map[string]bool, len(candidateNums))
	for _, n := range candidateNums {
		candidateSet[n] = true
	}
	for _, n := range queryNums {
		if candidateSet[n] {
			return min(score*1.05, 1.0)
		}
	}
	return score * 0.90
}

func confidenceOf(score float64) Confidence {
	switch {
	case score >= 0.95:
		return ConfidenceHigh
	case score >= 0.85:
		return ConfidenceMedium
	case score >= 0.70:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}
