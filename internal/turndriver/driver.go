// Package turndriver runs one match from "waiting" to "finished": it
// calls /start, steps the rules Simulator while fanning out /move calls
// each turn, calls /end, derives placements, and enqueues the rating
// update. It is the KindRunMatch job handler (SPEC_FULL.md §4.B).
package turndriver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"snake-arena-backend/internal/jobqueue"
	"snake-arena-backend/internal/models"
	"snake-arena-backend/internal/rules"
	"snake-arena-backend/internal/snakeclient"
)

// Config tunes per-call timeouts and the safety valve against a match
// that never terminates.
type Config struct {
	MoveTimeout  time.Duration
	StartTimeout time.Duration
	EndTimeout   time.Duration
	MaxTurns     int
}

// DefaultConfig matches the values referenced throughout SPEC_FULL.md.
func DefaultConfig() Config {
	return Config{
		MoveTimeout:  500 * time.Millisecond,
		StartTimeout: 2 * time.Second,
		EndTimeout:   2 * time.Second,
		MaxTurns:     1000,
	}
}

// Driver owns everything one match run needs: the pool, the snake HTTP
// client, the rules simulator, and the queue it feeds the rating job to.
type Driver struct {
	pool   *pgxpool.Pool
	client *snakeclient.Client
	sim    rules.Simulator
	queue  *jobqueue.Queue
	log    *slog.Logger
	cfg    Config
}

// New wires a Driver from its dependencies.
func New(pool *pgxpool.Pool, client *snakeclient.Client, sim rules.Simulator, queue *jobqueue.Queue, log *slog.Logger, cfg Config) *Driver {
	return &Driver{pool: pool, client: client, sim: sim, queue: queue, log: log, cfg: cfg}
}

// Handler adapts Run to the jobqueue.Handler signature for registration
// under jobqueue.KindRunMatch.
func (d *Driver) Handler() jobqueue.Handler {
	return func(ctx context.Context, payload []byte) error {
		var p jobqueue.RunMatchPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("unmarshal run_match payload: %w", err)
		}
		return d.Run(ctx, p.MatchID)
	}
}

type roster struct {
	participant models.MatchParticipant
	snake       *models.Snake
}

// Run drives matchID from "waiting" through to "finished".
func (d *Driver) Run(ctx context.Context, matchID uuid.UUID) error {
	match, err := models.GetMatchByID(ctx, d.pool, matchID)
	if err != nil {
		return fmt.Errorf("run match %s: %w", matchID, err)
	}

	participants, err := models.GetMatchParticipants(ctx, d.pool, matchID)
	if err != nil {
		return fmt.Errorf("run match %s: %w", matchID, err)
	}
	if len(participants) == 0 {
		return fmt.Errorf("run match %s: no participants", matchID)
	}

	entrants, err := d.loadRoster(ctx, participants)
	if err != nil {
		return fmt.Errorf("run match %s: %w", matchID, err)
	}

	if err := models.SetMatchStatus(ctx, d.pool, matchID, models.MatchStatusRunning); err != nil {
		return fmt.Errorf("run match %s: %w", matchID, err)
	}

	freshState, urls, snakeIDs := d.buildInitialState(match, entrants, matchID)

	state, eliminatedAt, resumed, err := d.resumeOrStart(ctx, matchID, freshState)
	if err != nil {
		return fmt.Errorf("run match %s: %w", matchID, err)
	}

	if !resumed {
		d.client.StartParallel(ctx, state, urls, d.cfg.StartTimeout)
		if err := d.persistTurn(ctx, matchID, state); err != nil {
			d.log.Warn("failed to persist initial turn", "match_id", matchID, "error", err)
		}
	} else {
		d.log.Info("resuming match from last persisted turn", "match_id", matchID, "turn", state.Turn)
	}

	lastMoves := make(map[string]models.Direction)

	for turn := state.Turn; turn < d.cfg.MaxTurns && !d.sim.Terminal(state); turn++ {
		results := d.client.MovesParallel(ctx, state, urls, d.cfg.MoveTimeout, lastMoves)

		moves := make(map[string]models.Direction, len(results))
		for _, r := range results {
			moves[r.SnakeID] = r.Direction
			lastMoves[r.SnakeID] = r.Direction
		}

		aliveBefore := make(map[string]bool)
		for _, s := range state.AliveSnakes() {
			aliveBefore[s.ID] = true
		}

		state = d.sim.Step(state, moves)

		for _, s := range state.Board.Snakes {
			if aliveBefore[s.ID] && !s.Alive() {
				eliminatedAt[s.ID] = state.Turn
			}
		}

		if err := d.persistTurn(ctx, matchID, state); err != nil {
			d.log.Warn("failed to persist turn", "match_id", matchID, "turn", state.Turn, "error", err)
		}
	}

	d.client.EndParallel(ctx, state, urls, d.cfg.EndTimeout)

	placements := derivePlacements(snakeIDs, eliminatedAt, state.Turn)
	for _, p := range entrants {
		if p.participant.Placement != nil {
			// Already set by a prior attempt that crashed after this
			// point but before the match was marked finished.
			continue
		}
		placement, ok := placements[p.snake.ID.String()]
		if !ok {
			continue
		}
		if err := models.SetParticipantPlacement(ctx, d.pool, p.participant.ID, placement); err != nil {
			return fmt.Errorf("run match %s: %w", matchID, err)
		}
	}

	if err := models.SetMatchStatus(ctx, d.pool, matchID, models.MatchStatusFinished); err != nil {
		return fmt.Errorf("run match %s: %w", matchID, err)
	}

	lm, err := models.FindLeaderboardMatchByMatchID(ctx, d.pool, matchID)
	if err != nil {
		return fmt.Errorf("run match %s: %w", matchID, err)
	}
	if lm != nil {
		if err := d.queue.EnqueueUpdateRatings(ctx, lm.ID, fmt.Sprintf("ratings for match %s", matchID)); err != nil {
			return fmt.Errorf("run match %s: enqueue ratings: %w", matchID, err)
		}
	}

	return nil
}

func (d *Driver) loadRoster(ctx context.Context, participants []models.MatchParticipant) ([]roster, error) {
	out := make([]roster, 0, len(participants))
	for _, p := range participants {
		snake, err := models.GetSnakeByID(ctx, d.pool, p.SnakeID)
		if err != nil {
			return nil, err
		}
		out = append(out, roster{participant: p, snake: snake})
	}
	return out, nil
}

func (d *Driver) buildInitialState(match *models.Match, r []roster, matchID uuid.UUID) (rules.GameState, []snakeclient.SnakeURL, []string) {
	snakeIDs := make([]string, len(r))
	urls := make([]snakeclient.SnakeURL, len(r))
	for i, ro := range r {
		id := ro.snake.ID.String()
		snakeIDs[i] = id
		urls[i] = snakeclient.SnakeURL{SnakeID: id, URL: ro.snake.URL}
	}

	state := d.sim.Initial(models.BoardSize{Width: match.BoardWidth, Height: match.BoardHeight}, snakeIDs)
	state.Game.ID = matchID.String()
	state.Game.Ruleset.Name = "standard"
	state.Game.Ruleset.Version = match.RuleVariant
	state.Game.Timeout = int(d.cfg.MoveTimeout.Milliseconds())
	return state, urls, snakeIDs
}

// resumeOrStart checks for a turn already persisted for matchID — left
// behind by a crashed attempt that a stale job lock let the queue
// reclaim and retry — and resumes from it instead of replaying the
// match from turn 0 with a fresh /start call. freshState is what a
// brand-new run would use; it's returned unchanged when there's nothing
// to resume from.
func (d *Driver) resumeOrStart(ctx context.Context, matchID uuid.UUID, freshState rules.GameState) (rules.GameState, map[string]int, bool, error) {
	eliminatedAt := make(map[string]int)

	latest, err := models.GetLatestMatchTurn(ctx, d.pool, matchID)
	if err != nil {
		return rules.GameState{}, nil, false, fmt.Errorf("check for resumable turn: %w", err)
	}
	if latest == nil {
		return freshState, eliminatedAt, false, nil
	}

	var state rules.GameState
	if err := json.Unmarshal(latest.StateJSON, &state); err != nil {
		return rules.GameState{}, nil, false, fmt.Errorf("unmarshal resumed turn state: %w", err)
	}

	// A snake already dead in the resumed snapshot was eliminated at or
	// before this turn; the exact turn isn't recoverable from a single
	// snapshot, so seed it conservatively at the resume point rather than
	// letting derivePlacements default it to "survived".
	for _, s := range state.Board.Snakes {
		if !s.Alive() {
			eliminatedAt[s.ID] = state.Turn
		}
	}

	return state, eliminatedAt, true, nil
}

func (d *Driver) persistTurn(ctx context.Context, matchID uuid.UUID, state rules.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal turn state: %w", err)
	}
	return models.InsertMatchTurn(ctx, d.pool, matchID, state.Turn, raw)
}

// derivePlacements ranks snakes by how long they survived: anyone alive
// at the final turn shares first place; eliminated snakes rank behind
// them in order of elimination turn (later elimination = better
// placement). Simultaneous eliminations share a placement, and the next
// placement skips the tied count, matching standard competition ranking.
func derivePlacements(snakeIDs []string, eliminatedAt map[string]int, finalTurn int) map[string]int {
	type entry struct {
		id   string
		turn int // effective elimination turn; finalTurn+1 means "survived"
	}

	entries := make([]entry, len(snakeIDs))
	for i, id := range snakeIDs {
		turn, eliminated := eliminatedAt[id]
		if !eliminated {
			turn = finalTurn + 1
		}
		entries[i] = entry{id: id, turn: turn}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].turn > entries[j].turn })

	placements := make(map[string]int, len(entries))
	placement := 1
	for i, e := range entries {
		if i > 0 && entries[i-1].turn != e.turn {
			placement = i + 1
		}
		placements[e.id] = placement
	}
	return placements
}
