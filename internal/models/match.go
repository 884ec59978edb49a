package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"snake-arena-backend/internal/dbtx"
)

// MatchStatus tracks a match through its lifecycle.
type MatchStatus string

const (
	MatchStatusWaiting  MatchStatus = "waiting"
	MatchStatusRunning  MatchStatus = "running"
	MatchStatusFinished MatchStatus = "finished"
)

// BoardSize is the width/height of the game board in cells.
type BoardSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoardSizeMedium is the standard 11x11 Battlesnake board.
var BoardSizeMedium = BoardSize{Width: 11, Height: 11}

// Match is one game instance between MatchSize snakes.
type Match struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	BoardWidth  int         `json:"board_width" db:"board_width"`
	BoardHeight int         `json:"board_height" db:"board_height"`
	RuleVariant string      `json:"rule_variant" db:"rule_variant"`
	Status      MatchStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	EnqueuedAt  *time.Time  `json:"enqueued_at,omitempty" db:"enqueued_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// MatchParticipant is the join row between a match and a participant
// entry (or, for legacy rows, a bare snake id). Placement is nil until
// the match finishes, and is set exactly once.
type MatchParticipant struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	MatchID            uuid.UUID  `json:"match_id" db:"match_id"`
	LeaderboardEntryID *uuid.UUID `json:"leaderboard_entry_id,omitempty" db:"leaderboard_entry_id"`
	SnakeID            uuid.UUID  `json:"snake_id" db:"snake_id"`
	Placement          *int       `json:"placement,omitempty" db:"placement"`
}

// LeaderboardMatch links a match to a leaderboard. Its existence is what
// makes a match "rated" (invariant 2 in SPEC_FULL.md).
type LeaderboardMatch struct {
	ID            uuid.UUID `json:"id" db:"id"`
	LeaderboardID uuid.UUID `json:"leaderboard_id" db:"leaderboard_id"`
	MatchID       uuid.UUID `json:"match_id" db:"match_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// MatchResult is the rating-engine audit row. Unique on
// (leaderboard_match_id, participant_entry_id) — the storage-level
// guard that makes the rating engine idempotent.
type MatchResult struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	LeaderboardMatchID   uuid.UUID `json:"leaderboard_match_id" db:"leaderboard_match_id"`
	ParticipantEntryID   uuid.UUID `json:"participant_entry_id" db:"participant_entry_id"`
	Placement            int       `json:"placement" db:"placement"`
	MuBefore             float64   `json:"mu_before" db:"mu_before"`
	MuAfter              float64   `json:"mu_after" db:"mu_after"`
	SigmaBefore          float64   `json:"sigma_before" db:"sigma_before"`
	SigmaAfter           float64   `json:"sigma_after" db:"sigma_after"`
	DisplayScoreDelta    float64   `json:"display_score_delta" db:"display_score_delta"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// MatchTurn is one persisted turn of a match's replay, supplemental to
// the distilled spec but required by its "persist a turn record" step.
type MatchTurn struct {
	ID         uuid.UUID `json:"id" db:"id"`
	MatchID    uuid.UUID `json:"match_id" db:"match_id"`
	TurnNumber int       `json:"turn_number" db:"turn_number"`
	StateJSON  []byte    `json:"state" db:"state_json"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CreateMatchParams bundles what the matchmaker needs to atomically
// create a match and its participant rows.
type CreateMatchParams struct {
	Board       BoardSize
	RuleVariant string
	EntryIDs    []uuid.UUID
	SnakeIDs    []uuid.UUID // parallel to EntryIDs
}

// CreateMatch inserts the match row and its participant join rows in one
// statement set. Caller is expected to run this inside a transaction
// alongside CreateLeaderboardMatch so the two never diverge.
func CreateMatch(ctx context.Context, q dbtx.Querier, p CreateMatchParams) (*Match, error) {
	if len(p.EntryIDs) != len(p.SnakeIDs) {
		return nil, fmt.Errorf("create match: entry/snake id length mismatch")
	}

	row := q.QueryRow(ctx, `
		INSERT INTO matches (board_width, board_height, rule_variant, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, board_width, board_height, rule_variant, status, created_at, enqueued_at, updated_at`,
		p.Board.Width, p.Board.Height, p.RuleVariant, MatchStatusWaiting)

	var m Match
	if err := row.Scan(&m.ID, &m.BoardWidth, &m.BoardHeight, &m.RuleVariant, &m.Status,
		&m.CreatedAt, &m.EnqueuedAt, &m.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	for i, entryID := range p.EntryIDs {
		_, err := q.Exec(ctx, `
			INSERT INTO match_participants (match_id, leaderboard_entry_id, snake_id)
			VALUES ($1, $2, $3)`, m.ID, entryID, p.SnakeIDs[i])
		if err != nil {
			return nil, fmt.Errorf("create match participant: %w", err)
		}
	}

	return &m, nil
}

// SetMatchEnqueuedAt stamps the match as enqueued, inside the same
// transaction that created it.
func SetMatchEnqueuedAt(ctx context.Context, q dbtx.Querier, matchID uuid.UUID, at time.Time) error {
	_, err := q.Exec(ctx, `UPDATE matches SET enqueued_at = $2, updated_at = now() WHERE id = $1`, matchID, at)
	if err != nil {
		return fmt.Errorf("set match enqueued_at: %w", err)
	}
	return nil
}

// CreateLeaderboardMatch links a match to a leaderboard, inside the same
// transaction as CreateMatch.
func CreateLeaderboardMatch(ctx context.Context, q dbtx.Querier, leaderboardID, matchID uuid.UUID) (*LeaderboardMatch, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO leaderboard_matches (leaderboard_id, match_id)
		VALUES ($1, $2)
		RETURNING id, leaderboard_id, match_id, created_at`, leaderboardID, matchID)

	var lm LeaderboardMatch
	if err := row.Scan(&lm.ID, &lm.LeaderboardID, &lm.MatchID, &lm.CreatedAt); err != nil {
		return nil, fmt.Errorf("create leaderboard match: %w", err)
	}
	return &lm, nil
}

// GetLeaderboardMatch fetches the immutable link row by its own id.
func GetLeaderboardMatch(ctx context.Context, q dbtx.Querier, id uuid.UUID) (*LeaderboardMatch, error) {
	row := q.QueryRow(ctx, `
		SELECT id, leaderboard_id, match_id, created_at
		FROM leaderboard_matches WHERE id = $1`, id)

	var lm LeaderboardMatch
	if err := row.Scan(&lm.ID, &lm.LeaderboardID, &lm.MatchID, &lm.CreatedAt); err != nil {
		return nil, fmt.Errorf("fetch leaderboard match %s: %w", id, err)
	}
	return &lm, nil
}

// SetMatchStatus transitions a match's status.
func SetMatchStatus(ctx context.Context, q dbtx.Querier, matchID uuid.UUID, status MatchStatus) error {
	_, err := q.Exec(ctx, `UPDATE matches SET status = $2, updated_at = now() WHERE id = $1`, matchID, status)
	if err != nil {
		return fmt.Errorf("set match status: %w", err)
	}
	return nil
}

// GetMatchByID fetches a match row. Participants are read separately
// with GetMatchParticipants.
func GetMatchByID(ctx context.Context, q dbtx.Querier, matchID uuid.UUID) (*Match, error) {
	row := q.QueryRow(ctx, `
		SELECT id, board_width, board_height, rule_variant, status, created_at, enqueued_at, updated_at
		FROM matches WHERE id = $1`, matchID)

	var m Match
	if err := row.Scan(&m.ID, &m.BoardWidth, &m.BoardHeight, &m.RuleVariant, &m.Status,
		&m.CreatedAt, &m.EnqueuedAt, &m.UpdatedAt); err != nil {
		return nil, fmt.Errorf("fetch match %s: %w", matchID, err)
	}
	return &m, nil
}

// GetMatchParticipants returns the join rows for a match, ordered by
// their row id. Ids are random UUIDs, so the order is stable but is not
// the insertion order or the order the matchmaker selected them in.
func GetMatchParticipants(ctx context.Context, q dbtx.Querier, matchID uuid.UUID) ([]MatchParticipant, error) {
	rows, err := q.Query(ctx, `
		SELECT id, match_id, leaderboard_entry_id, snake_id, placement
		FROM match_participants
		WHERE match_id = $1
		ORDER BY id ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("fetch match participants: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[MatchParticipant])
}

// SetParticipantPlacement sets a participant's placement exactly once,
// per invariant 6 in SPEC_FULL.md.
func SetParticipantPlacement(ctx context.Context, q dbtx.Querier, participantID uuid.UUID, placement int) error {
	tag, err := q.Exec(ctx, `
		UPDATE match_participants SET placement = $2
		WHERE id = $1 AND placement IS NULL`, participantID, placement)
	if err != nil {
		return fmt.Errorf("set participant placement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set participant placement: participant %s already has a placement", participantID)
	}
	return nil
}

// FindLeaderboardMatchByMatchID looks up the link row for a match, if
// any — a match with no link row is "unrated" (invariant 2).
func FindLeaderboardMatchByMatchID(ctx context.Context, q dbtx.Querier, matchID uuid.UUID) (*LeaderboardMatch, error) {
	row := q.QueryRow(ctx, `
		SELECT id, leaderboard_id, match_id, created_at
		FROM leaderboard_matches WHERE match_id = $1`, matchID)

	var lm LeaderboardMatch
	err := row.Scan(&lm.ID, &lm.LeaderboardID, &lm.MatchID, &lm.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find leaderboard match for %s: %w", matchID, err)
	}
	return &lm, nil
}

// CountMatchResults returns how many audit rows already exist for a
// leaderboard match — the rating engine's idempotency fast path.
func CountMatchResults(ctx context.Context, q dbtx.Querier, leaderboardMatchID uuid.UUID) (int64, error) {
	var n int64
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM match_results WHERE leaderboard_match_id = $1`, leaderboardMatchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count match results: %w", err)
	}
	return n, nil
}

// InsertMatchResult writes the audit row, tolerating a concurrent
// duplicate insert via ON CONFLICT DO NOTHING. Returns false if a row
// for this (leaderboard_match_id, participant_entry_id) already existed.
func InsertMatchResult(ctx context.Context, q dbtx.Querier, r MatchResult) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO match_results (
			leaderboard_match_id, participant_entry_id, placement,
			mu_before, mu_after, sigma_before, sigma_after, display_score_delta
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (leaderboard_match_id, participant_entry_id) DO NOTHING`,
		r.LeaderboardMatchID, r.ParticipantEntryID, r.Placement,
		r.MuBefore, r.MuAfter, r.SigmaBefore, r.SigmaAfter, r.DisplayScoreDelta)
	if err != nil {
		return false, fmt.Errorf("insert match result: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertMatchTurn persists one turn of replay state. A duplicate
// (match_id, turn_number) — the resumed tail of a crashed run replaying
// a turn it had already written — is silently ignored rather than
// treated as an error.
func InsertMatchTurn(ctx context.Context, q dbtx.Querier, matchID uuid.UUID, turnNumber int, stateJSON []byte) error {
	_, err := q.Exec(ctx, `
		INSERT INTO match_turns (match_id, turn_number, state_json)
		VALUES ($1, $2, $3)
		ON CONFLICT (match_id, turn_number) DO NOTHING`, matchID, turnNumber, stateJSON)
	if err != nil {
		return fmt.Errorf("insert match turn: %w", err)
	}
	return nil
}

// GetLatestMatchTurn returns the most recently persisted turn for a
// match, or nil if none has been written yet. The turn driver uses this
// to resume a crashed run from its last consistent state instead of
// replaying the match from scratch (SPEC_FULL.md: "a crash mid-match
// leaves a consistent prefix that a restart can resume from turn+1").
func GetLatestMatchTurn(ctx context.Context, q dbtx.Querier, matchID uuid.UUID) (*MatchTurn, error) {
	row := q.QueryRow(ctx, `
		SELECT id, match_id, turn_number, state_json, created_at
		FROM match_turns
		WHERE match_id = $1
		ORDER BY turn_number DESC
		LIMIT 1`, matchID)

	var t MatchTurn
	err := row.Scan(&t.ID, &t.MatchID, &t.TurnNumber, &t.StateJSON, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch latest match turn for %s: %w", matchID, err)
	}
	return &t, nil
}
