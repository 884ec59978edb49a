package matchmaker

import (
	"testing"

	"github.com/google/uuid"

	"snake-arena-backend/internal/models"
)

func entriesWithScores(scores ...float64) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, len(scores))
	for i, score := range scores {
		entries[i] = models.LeaderboardEntry{
			ID:           uuid.New(),
			SnakeID:      uuid.New(),
			DisplayScore: score,
		}
	}
	return entries
}

func TestSkillBandJitterSelectorReturnsCorrectSize(t *testing.T) {
	sel := NewSkillBandJitterSelector()
	entries := entriesWithScores(10, 20, 30, 40, 50, 60)

	got := sel.Select(entries, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 entries selected, got %d", len(got))
	}
}

func TestSkillBandJitterSelectorTooFewEntries(t *testing.T) {
	sel := NewSkillBandJitterSelector()
	entries := entriesWithScores(10, 20)

	got := sel.Select(entries, 4)
	if got != nil {
		t.Fatalf("expected nil when pool is smaller than matchSize, got %v", got)
	}
}

func TestSkillBandJitterSelectorExactlyEnough(t *testing.T) {
	sel := NewSkillBandJitterSelector()
	entries := entriesWithScores(10, 20, 30, 40)

	got := sel.Select(entries, 4)
	if len(got) != 4 {
		t.Fatalf("expected all 4 entries selected, got %d", len(got))
	}
}

func TestSkillBandJitterSelectorUniqueSnakes(t *testing.T) {
	sel := NewSkillBandJitterSelector()
	entries := entriesWithScores(10, 20, 30, 40, 50, 60, 70, 80)

	for i := 0; i < 20; i++ {
		got := sel.Select(entries, 4)
		seen := make(map[uuid.UUID]bool, len(got))
		for _, e := range got {
			if seen[e.SnakeID] {
				t.Fatalf("selector returned a duplicate snake entry: %v", e.SnakeID)
			}
			seen[e.SnakeID] = true
		}
	}
}
