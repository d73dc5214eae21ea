package filter

import (
	"testing"

	"github.com/kickoff-ai/core/pkg/models"
)

var sample = &models.SportsData{
	Matches: []models.Match{
		{ID: "1", HomeTeam: "Inter", AwayTeam: "Milan", Status: "Live 60'", League: "Serie A"},
		{ID: "2", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Status: "FT", League: "Premier League"},
		{ID: "3", HomeTeam: "Roma", AwayTeam: "Inter", Status: "20:45", League: "Serie A"},
	},
	Standings: map[string][]models.Standing{
		"Serie A":    {{Team: "Inter"}, {Team: "Napoli"}},
		"Bundesliga": {{Team: "Bayern"}},
	},
}

func TestLeagues(t *testing.T) {
	got := Leagues(sample)
	want := []string{"Bundesliga", "Premier League", "Serie A"}
	if len(got) != len(want) {
		t.Fatalf("Leagues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Leagues()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if len(Leagues(nil)) != 0 {
		t.Error("Expected no leagues for nil data")
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		wantIDs  []string
	}{
		{"no filter", Criteria{}, []string{"1", "2", "3"}},
		{"all leagues", Criteria{League: "All"}, []string{"1", "2", "3"}},
		{"search either side", Criteria{Search: "inter"}, []string{"1", "3"}},
		{"league", Criteria{League: "Premier League"}, []string{"2"}},
		{"live only", Criteria{LiveOnly: true}, []string{"1"}},
		{"combined", Criteria{Search: "INTER", League: "Serie A", LiveOnly: true}, []string{"1"}},
		{"no result", Criteria{Search: "juve"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(sample, tt.criteria)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Matches() returned %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("Matches()[%d].ID = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStandings(t *testing.T) {
	got := Standings(sample, Criteria{Search: "inter"})
	if len(got) != 1 || len(got["Serie A"]) != 1 {
		t.Errorf("Expected only Serie A with Inter, got %+v", got)
	}

	got = Standings(sample, Criteria{League: "Bundesliga"})
	if len(got) != 1 || got["Bundesliga"][0].Team != "Bayern" {
		t.Errorf("Expected only Bundesliga, got %+v", got)
	}
}
