package rules

import (
	"testing"

	"snake-arena-backend/internal/models"
)

func TestStandardInitialPlacesAllSnakesAlive(t *testing.T) {
	s := NewStandard()
	state := s.Initial(models.BoardSizeMedium, []string{"a", "b", "c", "d"})

	if len(state.Board.Snakes) != 4 {
		t.Fatalf("expected 4 snakes, got %d", len(state.Board.Snakes))
	}
	for _, snake := range state.Board.Snakes {
		if !snake.Alive() {
			t.Errorf("snake %s should start alive", snake.ID)
		}
		if snake.Health != s.MaxHealth {
			t.Errorf("snake %s should start at max health, got %d", snake.ID, snake.Health)
		}
	}
	if s.Terminal(state) {
		t.Fatal("a fresh 4-snake game should not be terminal")
	}
}

func TestStandardTerminalWhenOneOrZeroAlive(t *testing.T) {
	s := NewStandard()
	state := s.Initial(models.BoardSizeMedium, []string{"a", "b"})

	if s.Terminal(state) {
		t.Fatal("two living snakes should not be terminal")
	}

	// Kill "b" directly to exercise Terminal in isolation from Step.
	for i := range state.Board.Snakes {
		if state.Board.Snakes[i].ID == "b" {
			state.Board.Snakes[i].Health = 0
		}
	}
	if !s.Terminal(state) {
		t.Fatal("one living snake should be terminal")
	}
}

func TestStandardStepMovesHeadAndDecaysHealth(t *testing.T) {
	s := NewStandard()
	state := s.Initial(models.BoardSizeMedium, []string{"a", "b"})

	before := state.Board.Snakes[0]
	next := s.Step(state, map[string]models.Direction{
		"a": models.DirectionUp,
		"b": models.DirectionUp,
	})

	after, ok := next.FindSnake("a")
	if !ok {
		t.Fatal("snake a should still exist after one step")
	}
	if after.Health != before.Health-1 {
		t.Errorf("health should decay by 1 absent food, got %d -> %d", before.Health, after.Health)
	}
	if after.Head.Y != before.Head.Y+1 {
		t.Errorf("moving up should increase Y by 1, got %d -> %d", before.Head.Y, after.Head.Y)
	}
}

func TestStandardEliminatesOutOfBoundsSnake(t *testing.T) {
	s := NewStandard()
	state := s.Initial(models.BoardSize{Width: 3, Height: 3}, []string{"a", "b"})

	// Drive "a" off the board by repeatedly moving up; "b" holds position
	// by bouncing between left and right so it never leaves the board.
	for i := 0; i < 10; i++ {
		dir := models.DirectionLeft
		if i%2 == 1 {
			dir = models.DirectionRight
		}
		state = s.Step(state, map[string]models.Direction{"a": models.DirectionUp, "b": dir})
	}

	a, ok := state.FindSnake("a")
	if !ok {
		t.Fatal("snake a should still be present in the board list")
	}
	if a.Alive() {
		t.Fatal("snake a driven off the board should have been eliminated")
	}
}

// headOnState builds a board with two snakes one move away from colliding
// head to head at (5,5): "short" moves right into it, "long" moves left
// into it, with bodies of the given lengths.
func headOnState(shortLen, longLen int) GameState {
	shortBody := make([]Point, shortLen)
	for i := range shortBody {
		shortBody[i] = Point{X: 4 - i, Y: 5}
	}
	longBody := make([]Point, longLen)
	for i := range longBody {
		longBody[i] = Point{X: 6 + i, Y: 5}
	}

	return GameState{
		Board: Board{
			Height: 11,
			Width:  11,
			Snakes: []Snake{
				{ID: "short", Health: 100, Head: shortBody[0], Body: shortBody, Length: len(shortBody)},
				{ID: "long", Health: 100, Head: longBody[0], Body: longBody, Length: len(longBody)},
			},
		},
	}
}

func TestStandardHeadToHeadLongerSnakeWins(t *testing.T) {
	s := NewStandard()
	state := headOnState(3, 5)

	next := s.Step(state, map[string]models.Direction{
		"short": models.DirectionRight,
		"long":  models.DirectionLeft,
	})

	short, ok := next.FindSnake("short")
	if !ok {
		t.Fatal("short should still be present in the board list")
	}
	long, ok := next.FindSnake("long")
	if !ok {
		t.Fatal("long should still be present in the board list")
	}

	if short.Alive() {
		t.Fatal("the shorter snake should lose a head-to-head collision against a longer snake")
	}
	if !long.Alive() {
		t.Fatal("the longer snake should survive a head-to-head collision against a shorter snake")
	}
}

func TestStandardHeadToHeadEqualLengthBothDie(t *testing.T) {
	s := NewStandard()
	state := headOnState(4, 4)

	next := s.Step(state, map[string]models.Direction{
		"short": models.DirectionRight,
		"long":  models.DirectionLeft,
	})

	for _, id := range []string{"short", "long"} {
		snake, ok := next.FindSnake(id)
		if !ok {
			t.Fatalf("%s should still be present in the board list", id)
		}
		if snake.Alive() {
			t.Errorf("%s should lose a head-to-head collision against an equal-length snake", id)
		}
	}
}
