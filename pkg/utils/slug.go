package utils

import (
	"github.com/gosimple/slug"
)

// NormalizeSlug creates a URL-friendly slug using the gosimple/slug library.
// Accented characters are transliterated ("München" becomes "munchen").
func NormalizeSlug(text string) string {
	if text == "" {
		return ""
	}
	return slug.Make(text)
}

// TeamSlug is the storage key of a favorite team
func TeamSlug(teamName string) string {
	if teamName == "" {
		return "team"
	}
	return NormalizeSlug(teamName)
}

// MatchSlug identifies a fixture across fetches. Match IDs from the model
// are not stable, the pairing of team names is.
func MatchSlug(homeTeam, awayTeam string) string {
	if homeTeam == "" {
		homeTeam = "team"
	}
	if awayTeam == "" {
		awayTeam = "team"
	}
	return NormalizeSlug(homeTeam + " vs " + awayTeam)
}
