// Package parser pulls JSON objects out of free-form model output.
//
// Model replies often wrap the requested JSON in prose or markdown fences.
// Nothing in this package returns an error: malformed input degrades to an
// empty result that callers treat as a failed fetch.
package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kickoff-ai/core/pkg/models"
)

// ExtractObject returns the first brace-balanced {...} block of text.
// Braces inside JSON strings are ignored. ok is false when no balanced block exists.
func ExtractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// SportsPayload is the decoded body of a sports data reply
type SportsPayload struct {
	Matches    []models.Match
	Standings  map[string][]models.Standing
	HasMatches bool // the "matches" key was present and held an array
}

// ParseSportsPayload decodes model output into matches and standings.
// It never fails: anything unusable yields an empty payload with HasMatches false.
func ParseSportsPayload(text string) SportsPayload {
	empty := SportsPayload{
		Matches:   []models.Match{},
		Standings: map[string][]models.Standing{},
	}

	_, raw, ok := decodeObject(text)
	if !ok {
		return empty
	}

	payload := empty
	if rawMatches, present := raw["matches"]; present && isArray(rawMatches) {
		var items []json.RawMessage
		if err := json.Unmarshal(rawMatches, &items); err == nil {
			payload.HasMatches = true
			for _, item := range items {
				var m models.Match
				// a single malformed match is dropped, not the whole list
				if err := json.Unmarshal(item, &m); err == nil {
					payload.Matches = append(payload.Matches, m)
				}
			}
		}
	}

	if rawStandings, present := raw["standings"]; present {
		var standings map[string][]models.Standing
		if err := json.Unmarshal(rawStandings, &standings); err == nil && standings != nil {
			payload.Standings = standings
		}
	}

	return payload
}

// ParsePrediction decodes a {"prediction","confidence","analysis"} reply
func ParsePrediction(text string) (models.Prediction, bool) {
	body, _, ok := decodeObject(text)
	if !ok {
		return models.Prediction{}, false
	}

	var p models.Prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return models.Prediction{}, false
	}
	if p.Prediction == "" && p.Analysis == "" {
		return models.Prediction{}, false
	}
	return p, true
}

// decodeObject decodes the first balanced block that is valid JSON, skipping
// prose such as "{bozza}", and falls back to the whole text
func decodeObject(text string) ([]byte, map[string]json.RawMessage, bool) {
	var raw map[string]json.RawMessage

	rest := text
	for {
		block, ok := ExtractObject(rest)
		if !ok {
			break
		}
		raw = nil
		if err := json.Unmarshal([]byte(block), &raw); err == nil && raw != nil {
			return []byte(block), raw, true
		}
		end := strings.Index(rest, block) + len(block)
		rest = rest[end:]
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil, false
	}
	raw = nil
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil || raw == nil {
		return nil, nil, false
	}
	return []byte(trimmed), raw, true
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
