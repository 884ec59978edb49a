package matchmaker

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"snake-arena-backend/internal/models"
)

func TestGamesPerRunArithmetic(t *testing.T) {
	cases := []struct {
		name         string
		gamesPerDay  int
		intervalSecs int
		want         int
	}{
		{"default config: 100 games, 15 minute interval", 100, 900, 2},
		{"exact division", 96, 900, 1},
		{"tiny quota still runs at least one game", 1, 900, 1},
		{"hourly interval", 240, 3600, 10},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Config{GamesPerDay: c.gamesPerDay, IntervalSecs: c.intervalSecs}
			if got := cfg.gamesPerRun(); got != c.want {
				t.Errorf("gamesPerRun() = %d, want %d", got, c.want)
			}
		})
	}
}

func TestGamesPerRunNeverBelowOne(t *testing.T) {
	cfg := Config{GamesPerDay: 0, IntervalSecs: 900}
	if got := cfg.gamesPerRun(); got != 1 {
		t.Errorf("gamesPerRun() = %d, want floor of 1", got)
	}
}

func TestActiveLeaderboardsSkipsDisabled(t *testing.T) {
	disabledAt := time.Now()
	leaderboards := []models.Leaderboard{
		{ID: uuid.New(), Name: "active-one"},
		{ID: uuid.New(), Name: "disabled-one", DisabledAt: &disabledAt},
		{ID: uuid.New(), Name: "active-two"},
	}

	got := activeLeaderboards(leaderboards)

	if len(got) != 2 {
		t.Fatalf("expected 2 active leaderboards, got %d", len(got))
	}
	for _, lb := range got {
		if lb.Name == "disabled-one" {
			t.Fatal("a disabled leaderboard should have been filtered out of the matchmaker cycle")
		}
	}
}

func TestActiveLeaderboardsAllDisabledYieldsEmpty(t *testing.T) {
	disabledAt := time.Now()
	leaderboards := []models.Leaderboard{
		{ID: uuid.New(), Name: "disabled-one", DisabledAt: &disabledAt},
		{ID: uuid.New(), Name: "disabled-two", DisabledAt: &disabledAt},
	}

	got := activeLeaderboards(leaderboards)
	if len(got) != 0 {
		t.Fatalf("expected no active leaderboards, got %d", len(got))
	}
}
