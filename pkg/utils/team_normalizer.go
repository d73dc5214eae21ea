package utils

import (
	"strings"
)

// TeamNameNormalizer reduces the spellings a model uses for the same club
// ("FC Internazionale Milano", "Inter") to a comparable key
type TeamNameNormalizer struct {
	affixes map[string]bool
	aliases map[string]string
}

// NewTeamNameNormalizer creates a normalizer with the affixes and aliases
// common in the Serie A, Premier League, La Liga and Bundesliga
func NewTeamNameNormalizer() *TeamNameNormalizer {
	affixes := []string{
		"fc", "ac", "as", "ss", "ssc", "us", "acf", "cf", "sc", "afc", "cfc",
		"calcio", "club", "1909", "1907", "1913", "1846",
		"vfb", "vfl", "tsg", "sv", "bv", "bsc", "rb", "ud", "cd", "rcd", "sd",
	}
	n := &TeamNameNormalizer{
		affixes: make(map[string]bool, len(affixes)),
		aliases: map[string]string{
			"internazionale":          "inter",
			"internazionale-milano":   "inter",
			"inter-milan":             "inter",
			"milan-ac":                "milan",
			"manchester-united":       "man-utd",
			"man-united":              "man-utd",
			"manchester-city":         "man-city",
			"tottenham-hotspur":       "tottenham",
			"spurs":                   "tottenham",
			"wolverhampton-wanderers": "wolves",
			"atletico-de-madrid":      "atletico-madrid",
			"atleti":                  "atletico-madrid",
			"bayern-munchen":          "bayern",
			"bayern-munich":           "bayern",
			"borussia-dortmund":       "dortmund",
			"bvb":                     "dortmund",
			"leipzig":                 "rb-leipzig",
		},
	}
	for _, a := range affixes {
		n.affixes[a] = true
	}
	return n
}

// Normalize returns the comparable key for a team name
func (n *TeamNameNormalizer) Normalize(teamName string) string {
	base := NormalizeSlug(teamName)
	if base == "" {
		return ""
	}

	parts := strings.Split(base, "-")
	kept := parts[:0:0]
	for _, p := range parts {
		if !n.affixes[p] {
			kept = append(kept, p)
		}
	}
	// a name made only of affixes ("AC") keeps its slug
	if len(kept) == 0 {
		return base
	}

	key := strings.Join(kept, "-")
	if alias, ok := n.aliases[key]; ok {
		return alias
	}
	return key
}

// SameTeam reports whether two spellings refer to the same club
func (n *TeamNameNormalizer) SameTeam(a, b string) bool {
	na, nb := n.Normalize(a), n.Normalize(b)
	return na != "" && na == nb
}
