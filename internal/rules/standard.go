package rules

import (
	"snake-arena-backend/internal/models"
)

// StandardVersion is the rule_variant string persisted on Match rows
// created against this simulator.
const StandardVersion = "standard-go-v1"

// Standard is the minimal classic Battlesnake ruleset: move, eat,
// starve, collide, last snake alive wins. It is the only concrete
// Simulator this module ships; SPEC_FULL.md §4.B.1 treats the
// interface as the real boundary, not this implementation.
type Standard struct {
	MaxHealth   int
	FoodSpawned int
}

// NewStandard returns a Standard ruleset with the usual 100-health cap.
func NewStandard() *Standard {
	return &Standard{MaxHealth: 100, FoodSpawned: 1}
}

// Initial places snakes on the start cells from startPositions with a
// fixed starting length and one food pellet per snake near its start.
func (s *Standard) Initial(board models.BoardSize, snakeIDs []string) GameState {
	snakes := make([]Snake, 0, len(snakeIDs))
	food := make([]Point, 0, len(snakeIDs))

	positions := startPositions(board, len(snakeIDs))
	for i, id := range snakeIDs {
		head := positions[i]
		body := []Point{head, head, head}
		snakes = append(snakes, Snake{
			ID:     id,
			Name:   id,
			Health: s.MaxHealth,
			Body:   body,
			Head:   head,
			Length: len(body),
		})
		food = append(food, nearestFoodSpot(board, head))
	}

	return GameState{
		Game: GameInfo{
			Ruleset: Ruleset{Name: "standard", Version: StandardVersion},
		},
		Turn: 0,
		Board: Board{
			Height: board.Height,
			Width:  board.Width,
			Food:   food,
			Snakes: snakes,
		},
	}
}

// Step advances every living snake one cell in its chosen direction,
// applies health decay and food consumption, then eliminates anyone
// who starved, left the board, or collided.
func (s *Standard) Step(state GameState, moves map[string]models.Direction) GameState {
	next := state
	next.Turn = state.Turn + 1
	next.Board.Snakes = make([]Snake, len(state.Board.Snakes))
	copy(next.Board.Snakes, state.Board.Snakes)
	next.Board.Food = append([]Point(nil), state.Board.Food...)

	eaten := make(map[Point]bool)

	for i, snake := range next.Board.Snakes {
		if !snake.Alive() {
			continue
		}
		dir, ok := moves[snake.ID]
		if !ok {
			dir = models.DirectionUp
		}
		newHead := step(snake.Head, dir)

		grew := false
		for _, f := range next.Board.Food {
			if f == newHead && !eaten[f] {
				grew = true
				eaten[f] = true
				break
			}
		}

		body := append([]Point{newHead}, snake.Body...)
		if !grew {
			body = body[:len(body)-1]
		}

		health := snake.Health - 1
		if grew {
			health = s.MaxHealth
		}

		next.Board.Snakes[i] = Snake{
			ID:     snake.ID,
			Name:   snake.Name,
			Health: health,
			Body:   body,
			Head:   newHead,
			Length: len(body),
		}
	}

	if len(eaten) > 0 {
		remaining := next.Board.Food[:0]
		for _, f := range next.Board.Food {
			if !eaten[f] {
				remaining = append(remaining, f)
			}
		}
		next.Board.Food = remaining
	}

	// Decide every elimination against the same post-move board before
	// applying any, so both snakes in an equal-length head-to-head die.
	var dead []int
	for i, snake := range next.Board.Snakes {
		if !snake.Alive() {
			continue
		}
		if eliminate(snake, next.Board, state.Board.Height, state.Board.Width) {
			dead = append(dead, i)
		}
	}
	for _, i := range dead {
		next.Board.Snakes[i].Health = 0
	}

	return next
}

// Terminal reports whether one or zero snakes remain alive.
func (s *Standard) Terminal(state GameState) bool {
	return len(state.AliveSnakes()) <= 1
}

func step(p Point, dir models.Direction) Point {
	switch dir {
	case models.DirectionUp:
		return Point{X: p.X, Y: p.Y + 1}
	case models.DirectionDown:
		return Point{X: p.X, Y: p.Y - 1}
	case models.DirectionLeft:
		return Point{X: p.X - 1, Y: p.Y}
	case models.DirectionRight:
		return Point{X: p.X + 1, Y: p.Y}
	default:
		return p
	}
}

func eliminate(snake Snake, board Board, height, width int) bool {
	if snake.Health <= 0 {
		return true
	}
	if snake.Head.X < 0 || snake.Head.X >= width || snake.Head.Y < 0 || snake.Head.Y >= height {
		return true
	}

	for _, other := range board.Snakes {
		if !other.Alive() && other.ID != snake.ID {
			continue
		}
		bodyToCheck := other.Body
		if other.ID == snake.ID {
			bodyToCheck = other.Body[1:]
		}
		for _, seg := range bodyToCheck {
			if seg == snake.Head {
				if other.ID != snake.ID && other.Head == snake.Head && len(snake.Body) > len(other.Body) {
					continue
				}
				return true
			}
		}
	}
	return false
}

// startPositions assigns heads to the four corner cells inset one cell
// from the edge, in a fixed order, so tests are deterministic. With more
// than four snakes the corners are reused and heads share a cell.
func startPositions(board models.BoardSize, snakeCount int) []Point {
	positions := make([]Point, snakeCount)
	margin := 1
	corners := []Point{
		{X: margin, Y: margin},
		{X: board.Width - 1 - margin, Y: board.Height - 1 - margin},
		{X: margin, Y: board.Height - 1 - margin},
		{X: board.Width - 1 - margin, Y: margin},
	}
	for i := range positions {
		positions[i] = corners[i%len(corners)]
	}
	return positions
}

func nearestFoodSpot(board models.BoardSize, head Point) Point {
	cx, cy := board.Width/2, board.Height/2
	dx, dy := cx-head.X, cy-head.Y
	if dx == 0 && dy == 0 {
		return Point{X: cx, Y: cy}
	}
	spot := Point{X: head.X, Y: head.Y}
	if dx > 0 {
		spot.X++
	} else if dx < 0 {
		spot.X--
	}
	if dy > 0 {
		spot.Y++
	} else if dy < 0 {
		spot.Y--
	}
	return spot
}
