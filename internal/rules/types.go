// Package rules defines the wire-compatible game state shared by the
// snake HTTP client and the turn driver, plus the black-box Simulator
// interface the turn driver drives. SPEC_FULL.md treats the actual
// rules engine as a black box; this package's standard implementation
// exists only so the rest of the module has something real to exercise.
package rules

import "snake-arena-backend/internal/models"

// Point is a single board cell coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Snake is one competitor's state within a turn, in the shape the
// Battlesnake wire protocol expects for both `board.snakes` and `you`.
type Snake struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Health  int     `json:"health"`
	Body    []Point `json:"body"`
	Head    Point   `json:"head"`
	Length  int     `json:"length"`
	Latency string  `json:"latency"`
	Shout   string  `json:"shout,omitempty"`
}

// Alive reports whether a snake still has positive health.
func (s Snake) Alive() bool { return s.Health > 0 }

// Ruleset describes the rule variant in effect, echoed on the wire.
type Ruleset struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// GameInfo is the `game` wire object.
type GameInfo struct {
	ID      string  `json:"id"`
	Ruleset Ruleset `json:"ruleset"`
	Timeout int     `json:"timeout"`
}

// Board is the `board` wire object.
type Board struct {
	Height  int     `json:"height"`
	Width   int     `json:"width"`
	Food    []Point `json:"food"`
	Hazards []Point `json:"hazards"`
	Snakes  []Snake `json:"snakes"`
}

// GameState is the full request body sent to a snake server, modulo the
// `you` field, which the snake client sets per-recipient before sending
// (see SPEC_FULL.md §4.A).
type GameState struct {
	Game  GameInfo `json:"game"`
	Turn  int      `json:"turn"`
	Board Board    `json:"board"`
	You   Snake    `json:"you"`
}

// AliveSnakes returns the snakes in the board with positive health.
func (g GameState) AliveSnakes() []Snake {
	var alive []Snake
	for _, s := range g.Board.Snakes {
		if s.Alive() {
			alive = append(alive, s)
		}
	}
	return alive
}

// FindSnake returns the snake with the given id, if present on the board.
func (g GameState) FindSnake(id string) (Snake, bool) {
	for _, s := range g.Board.Snakes {
		if s.ID == id {
			return s, true
		}
	}
	return Snake{}, false
}

// Simulator advances game state one turn at a time. It is the black-box
// boundary SPEC_FULL.md §4.B.1 describes: the turn driver only ever
// calls Initial, Step, and Terminal.
type Simulator interface {
	Initial(board models.BoardSize, snakeIDs []string) GameState
	Step(state GameState, moves map[string]models.Direction) GameState
	Terminal(state GameState) bool
}
