package rating

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"snake-arena-backend/internal/dbtx"
	"snake-arena-backend/internal/jobqueue"
	"snake-arena-backend/internal/models"
)

// Engine applies ComputeUpdates to a finished match's participants and
// persists the result, guarding against ever applying the same match
// twice (SPEC_FULL.md §4.D).
type Engine struct {
	pool *pgxpool.Pool
	log  *slog.Logger
	cfg  Config
}

// NewEngine wires an Engine to its pool and rating config.
func NewEngine(pool *pgxpool.Pool, log *slog.Logger, cfg Config) *Engine {
	return &Engine{pool: pool, log: log, cfg: cfg}
}

// Handler adapts Run to the jobqueue.Handler signature for registration
// under jobqueue.KindUpdateRatings.
func (e *Engine) Handler() jobqueue.Handler {
	return func(ctx context.Context, payload []byte) error {
		var p jobqueue.UpdateRatingsPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("unmarshal update_ratings payload: %w", err)
		}
		return e.Run(ctx, p.LeaderboardMatchID)
	}
}

// Run applies ratings for one leaderboard match exactly once, even if
// the job is retried or run concurrently. It checks twice: a fast count
// outside any transaction (a retry of a match whose ratings are already
// applied returns without opening a transaction), then an authoritative
// recheck inside the transaction that does the work, so a concurrent
// duplicate call still can't double-apply (SPEC_FULL.md §4.D,
// "idempotent via storage").
func (e *Engine) Run(ctx context.Context, leaderboardMatchID uuid.UUID) error {
	already, err := models.CountMatchResults(ctx, e.pool, leaderboardMatchID)
	if err != nil {
		return fmt.Errorf("update ratings %s: %w", leaderboardMatchID, err)
	}
	if already > 0 {
		e.log.Info("ratings already applied, skipping", "leaderboard_match_id", leaderboardMatchID)
		return nil
	}

	lm, err := models.GetLeaderboardMatch(ctx, e.pool, leaderboardMatchID)
	if err != nil {
		return fmt.Errorf("update ratings %s: %w", leaderboardMatchID, err)
	}

	participants, err := models.GetMatchParticipants(ctx, e.pool, lm.MatchID)
	if err != nil {
		return fmt.Errorf("update ratings %s: %w", leaderboardMatchID, err)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("update ratings %s: begin: %w", leaderboardMatchID, err)
	}
	defer tx.Rollback(ctx)

	alreadyInTx, err := models.CountMatchResults(ctx, tx, leaderboardMatchID)
	if err != nil {
		return fmt.Errorf("update ratings %s: %w", leaderboardMatchID, err)
	}
	if alreadyInTx > 0 {
		e.log.Info("ratings applied by a concurrent run, skipping", "leaderboard_match_id", leaderboardMatchID)
		return nil
	}

	// Lock in a fixed order (participant id) to avoid deadlocking
	// against another worker locking the same entries in the reverse
	// order.
	type participantEntry struct {
		participant models.MatchParticipant
		entry       *models.LeaderboardEntry
	}
	locked := make([]participantEntry, 0, len(participants))
	sort.Slice(participants, func(i, j int) bool { return participants[i].ID.String() < participants[j].ID.String() })

	for _, p := range participants {
		if p.Placement == nil {
			return fmt.Errorf("update ratings %s: participant %s has no placement", leaderboardMatchID, p.ID)
		}
		entry, err := e.resolveEntry(ctx, tx, lm.LeaderboardID, p)
		if err != nil {
			return fmt.Errorf("update ratings %s: %w", leaderboardMatchID, err)
		}
		if entry == nil {
			e.log.Warn("participant has no leaderboard entry, skipping", "participant_id", p.ID)
			continue
		}
		locked = append(locked, participantEntry{participant: p, entry: entry})
	}

	if len(locked) < 2 {
		e.log.Warn("fewer than two rated participants, skipping rating update", "leaderboard_match_id", leaderboardMatchID)
		return tx.Commit(ctx)
	}

	ratingEntries := make([]Entry, len(locked))
	for i, le := range locked {
		ratingEntries[i] = Entry{
			ID:        le.entry.ID.String(),
			Mu:        le.entry.Mu,
			Sigma:     le.entry.Sigma,
			Placement: *le.participant.Placement,
		}
	}

	updates := ComputeUpdates(ratingEntries, e.cfg)
	updateByID := make(map[string]Update, len(updates))
	for _, u := range updates {
		updateByID[u.ID] = u
	}

	for _, le := range locked {
		u, ok := updateByID[le.entry.ID.String()]
		if !ok {
			continue
		}

		inserted, err := models.InsertMatchResult(ctx, tx, models.MatchResult{
			LeaderboardMatchID: leaderboardMatchID,
			ParticipantEntryID: le.entry.ID,
			Placement:          *le.participant.Placement,
			MuBefore:           u.MuBefore,
			MuAfter:            u.MuAfter,
			SigmaBefore:        u.SigmaBefore,
			SigmaAfter:         u.SigmaAfter,
			DisplayScoreDelta:  u.DisplayScoreAfter - u.DisplayScoreBefore,
		})
		if err != nil {
			return fmt.Errorf("update ratings %s: %w", leaderboardMatchID, err)
		}
		if !inserted {
			e.log.Warn("match result already existed, leaving rating unapplied for this entry",
				"leaderboard_match_id", leaderboardMatchID, "entry_id", le.entry.ID)
			continue
		}

		if err := models.ApplyRatingUpdate(ctx, tx, models.RatingUpdate{
			EntryID:      le.entry.ID,
			Mu:           u.MuAfter,
			Sigma:        u.SigmaAfter,
			DisplayScore: u.DisplayScoreAfter,
			IsFirst:      *le.participant.Placement == 1,
		}); err != nil {
			return fmt.Errorf("update ratings %s: %w", leaderboardMatchID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("update ratings %s: commit: %w", leaderboardMatchID, err)
	}

	e.log.Info("ratings applied", "leaderboard_match_id", leaderboardMatchID, "entries", len(locked))
	return nil
}

// resolveEntry finds the leaderboard entry a match participant rates
// against, locking the row FOR UPDATE. It prefers the entry id stored
// directly on the participant row and falls back to a snake lookup for
// legacy rows created before that column existed.
func (e *Engine) resolveEntry(ctx context.Context, q dbtx.Querier, leaderboardID uuid.UUID, p models.MatchParticipant) (*models.LeaderboardEntry, error) {
	if p.LeaderboardEntryID != nil {
		entry, err := models.GetEntryByID(ctx, q, *p.LeaderboardEntryID, true)
		if err != nil {
			return nil, fmt.Errorf("resolve entry for participant %s: %w", p.ID, err)
		}
		return entry, nil
	}

	entry, err := models.GetEntryBySnake(ctx, q, leaderboardID, p.SnakeID, true)
	if err != nil {
		return nil, fmt.Errorf("resolve entry for participant %s by snake fallback: %w", p.ID, err)
	}
	return entry, nil
}
