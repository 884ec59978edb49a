// Package matchmaker periodically groups active leaderboard entries
// into matches using skill-band selection with jitter, then hands each
// match to the job queue to be played (SPEC_FULL.md §4.C). It is
// grounded on the original server's leaderboard_matchmaker cron job.
package matchmaker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"snake-arena-backend/internal/jobqueue"
	"snake-arena-backend/internal/models"
)

// Config tunes one matchmaker's cadence and per-leaderboard quota.
type Config struct {
	MatchSize    int
	GamesPerDay  int
	IntervalSecs int
	RuleVariant  string
	Board        models.BoardSize

	// MaxQueueDepth, when non-zero, would skip a matchmaker cycle once
	// the job queue backs up past this depth. Left unwired by default
	// (SPEC_FULL.md Open Questions): the queue drains fast enough in
	// practice that backpressure has never been needed, and wiring it
	// prematurely would silently stop creating matches during a burst
	// instead of surfacing the real bottleneck.
	MaxQueueDepth int
}

// DefaultConfig matches SPEC_FULL.md's default environment values.
func DefaultConfig() Config {
	return Config{
		MatchSize:    4,
		GamesPerDay:  100,
		IntervalSecs: 900,
		RuleVariant:  "standard-go-v1",
		Board:        models.BoardSizeMedium,
	}
}

// gamesPerRun computes the per-cycle quota live from GamesPerDay and
// IntervalSecs rather than a separately maintained "runs per day"
// constant, so the two can never drift out of sync with each other
// (SPEC_FULL.md REDESIGN FLAGS).
func (c Config) gamesPerRun() int {
	runsPerDay := float64(86400) / float64(c.IntervalSecs)
	perRun := int(math.Ceil(float64(c.GamesPerDay) / runsPerDay))
	if perRun < 1 {
		return 1
	}
	return perRun
}

// Matchmaker owns the ticker loop and the selector it delegates to.
type Matchmaker struct {
	pool     *pgxpool.Pool
	queue    *jobqueue.Queue
	log      *slog.Logger
	cfg      Config
	selector Selector
}

// New wires a Matchmaker to its dependencies and a SkillBandJitterSelector.
func New(pool *pgxpool.Pool, queue *jobqueue.Queue, log *slog.Logger, cfg Config) *Matchmaker {
	return &Matchmaker{pool: pool, queue: queue, log: log, cfg: cfg, selector: NewSkillBandJitterSelector()}
}

// Start runs RunOnce on a ticker until ctx is cancelled.
func (m *Matchmaker) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(m.cfg.IntervalSecs) * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.RunOnce(ctx); err != nil {
					m.log.Error("matchmaker cycle failed", "error", err)
				}
			}
		}
	}()
}

// RunOnce runs one matchmaking cycle across every active leaderboard.
// One leaderboard's failure is logged and skipped rather than aborting
// the whole cycle, matching the original server's per-leaderboard error
// isolation.
func (m *Matchmaker) RunOnce(ctx context.Context) error {
	leaderboards, err := models.GetActiveLeaderboards(ctx, m.pool)
	if err != nil {
		return fmt.Errorf("matchmaker: fetch active leaderboards: %w", err)
	}

	for _, lb := range activeLeaderboards(leaderboards) {
		if err := m.runForLeaderboard(ctx, lb); err != nil {
			m.log.Error("matchmaker cycle failed for leaderboard", "leaderboard_id", lb.ID, "leaderboard_name", lb.Name, "error", err)
		}
	}
	return nil
}

// activeLeaderboards filters out anything with DisabledAt set. This
// mirrors the WHERE disabled_at IS NULL clause in
// models.GetActiveLeaderboards as a belt-and-suspenders guard — a
// leaderboard disabled between that query and this loop running (or a
// future caller that forgets the filter) still gets skipped here.
func activeLeaderboards(all []models.Leaderboard) []models.Leaderboard {
	active := make([]models.Leaderboard, 0, len(all))
	for _, lb := range all {
		if lb.DisabledAt == nil {
			active = append(active, lb)
		}
	}
	return active
}

func (m *Matchmaker) runForLeaderboard(ctx context.Context, lb models.Leaderboard) error {
	entries, err := models.GetActiveEntries(ctx, m.pool, lb.ID)
	if err != nil {
		return fmt.Errorf("fetch active entries: %w", err)
	}

	if len(entries) < m.cfg.MatchSize {
		m.log.Debug("not enough active snakes for matchmaking", "leaderboard_id", lb.ID, "active_snakes", len(entries), "match_size", m.cfg.MatchSize)
		return nil
	}

	gamesThisRun := m.cfg.gamesPerRun()
	m.log.Info("running matchmaker", "leaderboard_id", lb.ID, "active_snakes", len(entries), "games_to_create", gamesThisRun)

	for i := 0; i < gamesThisRun; i++ {
		selected := m.selector.Select(entries, m.cfg.MatchSize)
		if len(selected) < m.cfg.MatchSize {
			break
		}

		matchID, err := m.createMatch(ctx, lb.ID, selected)
		if err != nil {
			return fmt.Errorf("create match: %w", err)
		}

		if err := m.queue.EnqueueRunMatch(ctx, matchID, fmt.Sprintf("leaderboard match %s", matchID)); err != nil {
			return fmt.Errorf("enqueue run_match for %s: %w", matchID, err)
		}

		m.log.Info("created leaderboard match", "leaderboard_id", lb.ID, "match_id", matchID)
	}

	return nil
}

// createMatch atomically creates the match, its participant rows, the
// leaderboard link, and the enqueued_at stamp, so a match can never
// exist without its leaderboard link (SPEC_FULL.md invariant 2).
func (m *Matchmaker) createMatch(ctx context.Context, leaderboardID uuid.UUID, selected []models.LeaderboardEntry) (uuid.UUID, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin matchmaker transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	entryIDs := make([]uuid.UUID, len(selected))
	snakeIDs := make([]uuid.UUID, len(selected))
	for i, e := range selected {
		entryIDs[i] = e.ID
		snakeIDs[i] = e.SnakeID
	}

	match, err := models.CreateMatch(ctx, tx, models.CreateMatchParams{
		Board:       m.cfg.Board,
		RuleVariant: m.cfg.RuleVariant,
		EntryIDs:    entryIDs,
		SnakeIDs:    snakeIDs,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("create match row: %w", err)
	}

	if err := models.SetMatchEnqueuedAt(ctx, tx, match.ID, time.Now()); err != nil {
		return uuid.Nil, fmt.Errorf("set enqueued_at: %w", err)
	}

	if _, err := models.CreateLeaderboardMatch(ctx, tx, leaderboardID, match.ID); err != nil {
		return uuid.Nil, fmt.Errorf("link leaderboard match: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit matchmaker transaction: %w", err)
	}

	return match.ID, nil
}
