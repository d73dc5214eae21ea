package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SportsData is the full payload produced by one successful fetch
type SportsData struct {
	Matches     []Match               `json:"matches"`
	Standings   map[string][]Standing `json:"standings"`
	LastUpdated string                `json:"lastUpdated"`
	Sources     []GroundingSource     `json:"sources"`
}

// Match is a single fixture as reported by the model. ID is only unique within one fetch.
type Match struct {
	ID       string `json:"id"`
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	Score    string `json:"score"`
	Status   string `json:"status"`
	League   string `json:"league"`
	Odds     Odds   `json:"odds"`
	Time     string `json:"time,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Odds holds the 1X2 market plus optional secondary markets
type Odds struct {
	Home    FlexFloat  `json:"home"`
	Draw    FlexFloat  `json:"draw"`
	Away    FlexFloat  `json:"away"`
	Over25  *FlexFloat `json:"over25,omitempty"`
	Under25 *FlexFloat `json:"under25,omitempty"`
	GG      *FlexFloat `json:"gg,omitempty"`
	NG      *FlexFloat `json:"ng,omitempty"`
}

type Standing struct {
	Rank         FlexInt      `json:"rank"`
	Team         string       `json:"team"`
	Played       FlexInt      `json:"played"`
	Points       FlexInt      `json:"points"`
	Goals        string       `json:"goals"`
	Form         string       `json:"form,omitempty"`
	FormSequence []FormResult `json:"formSequence,omitempty"`
	NextMatch    string       `json:"nextMatch,omitempty"`
}

type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// HistoricalSnapshot is a timestamped copy of a successful fetch
type HistoricalSnapshot struct {
	ID        string     `json:"id"`
	Timestamp string     `json:"timestamp"`
	Data      SportsData `json:"data"`
}

// Prediction is the model's 1X2 call for a single match
type Prediction struct {
	Prediction string `json:"prediction"`
	Confidence string `json:"confidence"`
	Analysis   string `json:"analysis"`
	Thinking   string `json:"thinking,omitempty"`
}

// MatchPhase is the heuristic classification of Match.Status
type MatchPhase string

const (
	PhaseLive     MatchPhase = "live"
	PhaseFinished MatchPhase = "finished"
	PhaseUpcoming MatchPhase = "upcoming"
)

var (
	liveMarkers     = []string{"live", "in corso", "intervallo", "'"}
	liveWords       = []string{"1t", "2t", "ht"}
	finishedMarkers = []string{"ft", "finished", "terminata", "finale", "full time"}
)

// Phase classifies the free-text status by substring match.
// Finished markers win over live markers so "FT" with a trailing minute still reads as finished.
func (m Match) Phase() MatchPhase {
	status := strings.ToLower(strings.TrimSpace(m.Status))
	if status == "" {
		return PhaseUpcoming
	}
	for _, marker := range finishedMarkers {
		if containsWord(status, marker) {
			return PhaseFinished
		}
	}
	for _, marker := range liveMarkers {
		if strings.Contains(status, marker) {
			return PhaseLive
		}
	}
	for _, marker := range liveWords {
		if containsWord(status, marker) {
			return PhaseLive
		}
	}
	return PhaseUpcoming
}

// IsLive reports whether the match is in progress
func (m Match) IsLive() bool {
	return m.Phase() == PhaseLive
}

// Label returns "Home vs Away"
func (m Match) Label() string {
	return m.HomeTeam + " vs " + m.AwayTeam
}

// Goals parses the "X-Y" score. ok is false when the score is not numeric yet.
func (m Match) Goals() (home, away int, ok bool) {
	return parsePair(m.Score)
}

// FormPoints maps the form sequence to points (W=3, D=1, L=0) for trend charts
func (s Standing) FormPoints() []int {
	points := make([]int, 0, len(s.FormSequence))
	for _, r := range s.FormSequence {
		points = append(points, r.Points())
	}
	return points
}

// GoalDifference parses Goals ("scored-conceded"); zero when unparseable
func (s Standing) GoalDifference() int {
	scored, conceded, ok := parsePair(s.Goals)
	if !ok {
		return 0
	}
	return scored - conceded
}

// FormResult is one of W, D, L
type FormResult string

const (
	FormWin  FormResult = "W"
	FormDraw FormResult = "D"
	FormLoss FormResult = "L"
)

func (f FormResult) Points() int {
	switch f {
	case FormWin:
		return 3
	case FormDraw:
		return 1
	default:
		return 0
	}
}

// UnmarshalJSON accepts lower case and the Italian V/N/P letters
func (f *FormResult) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = FormLoss
		return nil
	}
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "W", "V":
		*f = FormWin
	case "D", "N", "X":
		*f = FormDraw
	default:
		*f = FormLoss
	}
	return nil
}

// FlexFloat decodes numbers that the model sometimes emits as strings ("1.80", "1,80")
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" || s == "-" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) Float64() float64 {
	return float64(f)
}

// FlexInt decodes integers that may arrive as strings or floats
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	var f FlexFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = FlexInt(int(f))
	return nil
}

func (i FlexInt) Int() int {
	return int(i)
}

func parsePair(s string) (int, int, bool) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "-:")
	if sep <= 0 {
		return 0, 0, false
	}
	a, errA := strconv.Atoi(strings.TrimSpace(s[:sep]))
	b, errB := strconv.Atoi(strings.TrimSpace(s[sep+1:]))
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return a, b, true
}

func containsWord(s, word string) bool {
	for _, field := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == '(' || r == ')' || r == ','
	}) {
		if field == word {
			return true
		}
	}
	// multi-word markers
	return strings.Contains(word, " ") && strings.Contains(s, word)
}

// Location is an optional coordinate hint for the backend
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
