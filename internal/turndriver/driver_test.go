package turndriver

import "testing"

func TestDerivePlacementsSurvivorsRankFirst(t *testing.T) {
	snakeIDs := []string{"a", "b", "c"}
	eliminatedAt := map[string]int{
		"b": 5,
		"c": 10,
	}
	// "a" never appears in eliminatedAt, i.e. it survived to the end.

	got := derivePlacements(snakeIDs, eliminatedAt, 12)

	if got["a"] != 1 {
		t.Errorf("survivor should place 1st, got %d", got["a"])
	}
	if got["c"] != 2 {
		t.Errorf("later elimination should place better than earlier, got %d", got["c"])
	}
	if got["b"] != 3 {
		t.Errorf("earliest elimination should place last, got %d", got["b"])
	}
}

func TestDerivePlacementsTiesShareAndSkip(t *testing.T) {
	snakeIDs := []string{"a", "b", "c", "d"}
	eliminatedAt := map[string]int{
		"c": 5,
		"d": 5,
	}
	// "a" and "b" both survive.

	got := derivePlacements(snakeIDs, eliminatedAt, 8)

	if got["a"] != 1 || got["b"] != 1 {
		t.Errorf("tied survivors should share placement 1, got a=%d b=%d", got["a"], got["b"])
	}
	if got["c"] != 3 || got["d"] != 3 {
		t.Errorf("tied eliminations should share placement, skipping over the tied count, got c=%d d=%d", got["c"], got["d"])
	}
}

func TestDerivePlacementsAllEliminatedDistinctTurns(t *testing.T) {
	snakeIDs := []string{"a", "b", "c"}
	eliminatedAt := map[string]int{
		"a": 1,
		"b": 2,
		"c": 3,
	}

	got := derivePlacements(snakeIDs, eliminatedAt, 3)

	if got["c"] != 1 || got["b"] != 2 || got["a"] != 3 {
		t.Errorf("unexpected placements: %v", got)
	}
}
