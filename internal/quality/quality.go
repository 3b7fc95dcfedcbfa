// Package quality defines audio quality tiers and preference-order selection.
package quality

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is a named audio fidelity level offered by the catalog.
type Tier string

const (
	Low           Tier = "LOW"
	High          Tier = "HIGH"
	Lossless      Tier = "LOSSLESS"
	HiResLossless Tier = "HI_RES_LOSSLESS"
)

// ErrNoQualityAvailable is returned when no preferred tier is offered for an
// item. Fatal for that release; the batch continues.
var ErrNoQualityAvailable = errors.New("no preferred quality available")

// aliases maps accepted spellings onto canonical tiers. MAX is the one
// non-canonical name: the catalog's request vocabulary treats it as the
// hi-res tier, and user configs carry it.
var aliases = map[string]Tier{
	"low":             Low,
	"high":            High,
	"lossless":        Lossless,
	"hi_res_lossless": HiResLossless,
	"hires_lossless":  HiResLossless,
	"max":             HiResLossless,
}

// Parse converts a user-supplied name to a Tier. Canonical names plus the
// MAX alias are accepted case-insensitively.
func Parse(s string) (Tier, error) {
	if t, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown quality tier %q", s)
}

// ParseOrder converts a preference list, preserving order and dropping
// duplicates introduced by aliases.
func ParseOrder(names []string) ([]Tier, error) {
	var order []Tier
	seen := make(map[Tier]bool)
	for _, name := range names {
		t, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		order = append(order, t)
	}
	if len(order) == 0 {
		return nil, errors.New("empty quality order")
	}
	return order, nil
}

// Select returns the first tier of the preference order present in available.
// Returns ErrNoQualityAvailable when the intersection is empty. Deterministic,
// no partial matches between tiers.
func Select(preference []Tier, available []Tier) (Tier, error) {
	offered := make(map[Tier]bool, len(available))
	for _, t := range available {
		offered[t] = true
	}
	for _, t := range preference {
		if offered[t] {
			return t, nil
		}
	}
	return "", ErrNoQualityAvailable
}

// Ext returns the container extension the catalog delivers for a tier.
func Ext(t Tier) string {
	switch t {
	case Lossless, HiResLossless:
		return ".flac"
	default:
		return ".mp3"
	}
}

// KnownExts lists every extension a finished track might carry on disk,
// used for existence checks before fetching.
func KnownExts() []string {
	return []string{".mp3", ".flac", ".m4a"}
}
