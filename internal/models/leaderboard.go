package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"snake-arena-backend/internal/dbtx"
)

// Leaderboard is a named competitive context with its own rating pool.
type Leaderboard struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	DisabledAt  *time.Time `json:"disabled_at,omitempty" db:"disabled_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// LeaderboardEntry is one snake's enrollment in one leaderboard. Variant
// defaults to 0; non-zero variants exist only so a stress-test harness
// can opt the same snake in more than once (see SPEC_FULL.md Open
// Questions) — GetOrCreateEntry never creates anything but variant 0.
type LeaderboardEntry struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	LeaderboardID       uuid.UUID  `json:"leaderboard_id" db:"leaderboard_id"`
	SnakeID             uuid.UUID  `json:"snake_id" db:"snake_id"`
	Variant             int        `json:"variant" db:"variant"`
	Mu                  float64    `json:"mu" db:"mu"`
	Sigma               float64    `json:"sigma" db:"sigma"`
	DisplayScore        float64    `json:"display_score" db:"display_score"`
	GamesPlayed         int        `json:"games_played" db:"games_played"`
	FirstPlaceFinishes  int        `json:"first_place_finishes" db:"first_place_finishes"`
	NonFirstFinishes    int        `json:"non_first_finishes" db:"non_first_finishes"`
	DisabledAt          *time.Time `json:"disabled_at,omitempty" db:"disabled_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// DefaultMu and DefaultSigma seed a freshly created entry. They match the
// Weng-Lin library defaults used throughout the rating engine.
const (
	DefaultMu    = 25.0
	DefaultSigma = 25.0 / 3.0
)

// RankedEntry joins an entry with its snake's display name, for the
// read-only leaderboard views.
type RankedEntry struct {
	LeaderboardEntry
	SnakeName string `json:"snake_name" db:"snake_name"`
}

// GetActiveLeaderboards returns every leaderboard not disabled, ordered
// by creation time. The matchmaker iterates this list once per cycle.
func GetActiveLeaderboards(ctx context.Context, q dbtx.Querier) ([]Leaderboard, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, disabled_at, created_at, updated_at
		FROM leaderboards
		WHERE disabled_at IS NULL
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("fetch active leaderboards: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[Leaderboard])
}

// GetLeaderboardByID fetches a single leaderboard, including disabled ones.
func GetLeaderboardByID(ctx context.Context, q dbtx.Querier, id uuid.UUID) (*Leaderboard, error) {
	row := q.QueryRow(ctx, `
		SELECT id, name, disabled_at, created_at, updated_at
		FROM leaderboards
		WHERE id = $1`, id)

	var lb Leaderboard
	if err := row.Scan(&lb.ID, &lb.Name, &lb.DisabledAt, &lb.CreatedAt, &lb.UpdatedAt); err != nil {
		return nil, fmt.Errorf("fetch leaderboard %s: %w", id, err)
	}
	return &lb, nil
}

// SetLeaderboardDisabled pauses or resumes a leaderboard, hiding it from
// the matchmaker while disabled.
func SetLeaderboardDisabled(ctx context.Context, q dbtx.Querier, id uuid.UUID, disabledAt *time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE leaderboards SET disabled_at = $2, updated_at = now()
		WHERE id = $1`, id, disabledAt)
	if err != nil {
		return fmt.Errorf("set leaderboard disabled: %w", err)
	}
	return nil
}

// GetOrCreateEntry opts a snake into a leaderboard (variant 0), or
// returns its existing entry. A previously disabled entry is
// re-enabled, matching the original opt-in-reactivates semantics.
func GetOrCreateEntry(ctx context.Context, q dbtx.Querier, leaderboardID, snakeID uuid.UUID) (*LeaderboardEntry, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO leaderboard_entries (leaderboard_id, snake_id, variant, mu, sigma, display_score)
		VALUES ($1, $2, 0, $3, $4, $3 - 3 * $4)
		ON CONFLICT (leaderboard_id, snake_id, variant)
		DO UPDATE SET disabled_at = NULL
		RETURNING id, leaderboard_id, snake_id, variant, mu, sigma, display_score,
			games_played, first_place_finishes, non_first_finishes,
			disabled_at, created_at, updated_at`,
		leaderboardID, snakeID, DefaultMu, DefaultSigma)

	return scanEntry(row)
}

// GetActiveEntries returns every non-disabled entry for a leaderboard,
// ordered by display score descending. The matchmaker requires at least
// MatchSize of these before it will create a match.
func GetActiveEntries(ctx context.Context, q dbtx.Querier, leaderboardID uuid.UUID) ([]LeaderboardEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT id, leaderboard_id, snake_id, variant, mu, sigma, display_score,
			games_played, first_place_finishes, non_first_finishes,
			disabled_at, created_at, updated_at
		FROM leaderboard_entries
		WHERE leaderboard_id = $1 AND disabled_at IS NULL
		ORDER BY display_score DESC`, leaderboardID)
	if err != nil {
		return nil, fmt.Errorf("fetch active entries: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[LeaderboardEntry])
}

// GetEntryByID fetches a single entry, optionally locking it FOR UPDATE
// when q is a transaction. Used by the rating engine.
func GetEntryByID(ctx context.Context, q dbtx.Querier, id uuid.UUID, forUpdate bool) (*LeaderboardEntry, error) {
	sql := `
		SELECT id, leaderboard_id, snake_id, variant, mu, sigma, display_score,
			games_played, first_place_finishes, non_first_finishes,
			disabled_at, created_at, updated_at
		FROM leaderboard_entries
		WHERE id = $1`
	if forUpdate {
		sql += " FOR UPDATE"
	}
	row := q.QueryRow(ctx, sql, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// GetEntryBySnake looks up an entry by (leaderboard, snake) at the
// default variant. Used as a fallback for match-participant rows
// written before participant_entry_id was stored on the join row.
func GetEntryBySnake(ctx context.Context, q dbtx.Querier, leaderboardID, snakeID uuid.UUID, forUpdate bool) (*LeaderboardEntry, error) {
	sql := `
		SELECT id, leaderboard_id, snake_id, variant, mu, sigma, display_score,
			games_played, first_place_finishes, non_first_finishes,
			disabled_at, created_at, updated_at
		FROM leaderboard_entries
		WHERE leaderboard_id = $1 AND snake_id = $2 AND variant = 0`
	if forUpdate {
		sql += " FOR UPDATE"
	}
	row := q.QueryRow(ctx, sql, leaderboardID, snakeID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func scanEntry(row pgx.Row) (*LeaderboardEntry, error) {
	var e LeaderboardEntry
	err := row.Scan(&e.ID, &e.LeaderboardID, &e.SnakeID, &e.Variant, &e.Mu, &e.Sigma, &e.DisplayScore,
		&e.GamesPlayed, &e.FirstPlaceFinishes, &e.NonFirstFinishes,
		&e.DisabledAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan leaderboard entry: %w", err)
	}
	return &e, nil
}

// RatingUpdate is applied to a single leaderboard entry after a match.
type RatingUpdate struct {
	EntryID     uuid.UUID
	Mu          float64
	Sigma       float64
	DisplayScore float64
	IsFirst     bool
}

// ApplyRatingUpdate writes the new rating and bumps the counters.
// games_played always increases by exactly one of the two finish
// counters, preserving invariant 3 from SPEC_FULL.md.
func ApplyRatingUpdate(ctx context.Context, q dbtx.Querier, u RatingUpdate) error {
	col := "non_first_finishes"
	if u.IsFirst {
		col = "first_place_finishes"
	}
	sql := fmt.Sprintf(`
		UPDATE leaderboard_entries
		SET mu = $2, sigma = $3, display_score = $4,
			games_played = games_played + 1,
			%s = %s + 1,
			updated_at = now()
		WHERE id = $1`, col, col)

	_, err := q.Exec(ctx, sql, u.EntryID, u.Mu, u.Sigma, u.DisplayScore)
	if err != nil {
		return fmt.Errorf("apply rating update: %w", err)
	}
	return nil
}

// GetRankedEntries returns entries with at least minGames games played,
// joined with their snake's display name, ordered by display score.
func GetRankedEntries(ctx context.Context, q dbtx.Querier, leaderboardID uuid.UUID, minGames int) ([]RankedEntry, error) {
	return queryRankedEntries(ctx, q, leaderboardID, minGames, ">=", "le.display_score DESC")
}

// GetPlacementEntries returns entries below minGames games played —
// snakes still establishing a rating — ordered by games played.
func GetPlacementEntries(ctx context.Context, q dbtx.Querier, leaderboardID uuid.UUID, minGames int) ([]RankedEntry, error) {
	return queryRankedEntries(ctx, q, leaderboardID, minGames, "<", "le.games_played DESC")
}

func queryRankedEntries(ctx context.Context, q dbtx.Querier, leaderboardID uuid.UUID, minGames int, cmp, order string) ([]RankedEntry, error) {
	sql := fmt.Sprintf(`
		SELECT le.id, le.leaderboard_id, le.snake_id, le.variant, le.mu, le.sigma, le.display_score,
			le.games_played, le.first_place_finishes, le.non_first_finishes,
			le.disabled_at, le.created_at, le.updated_at,
			s.name AS snake_name
		FROM leaderboard_entries le
		JOIN snakes s ON s.id = le.snake_id
		WHERE le.leaderboard_id = $1
			AND le.disabled_at IS NULL
			AND le.games_played %s $2
		ORDER BY %s`, cmp, order)

	rows, err := q.Query(ctx, sql, leaderboardID, minGames)
	if err != nil {
		return nil, fmt.Errorf("fetch ranked entries: %w", err)
	}
	defer rows.Close()

	var out []RankedEntry
	for rows.Next() {
		var e RankedEntry
		if err := rows.Scan(&e.ID, &e.LeaderboardID, &e.SnakeID, &e.Variant, &e.Mu, &e.Sigma, &e.DisplayScore,
			&e.GamesPlayed, &e.FirstPlaceFinishes, &e.NonFirstFinishes,
			&e.DisabledAt, &e.CreatedAt, &e.UpdatedAt, &e.SnakeName); err != nil {
			return nil, fmt.Errorf("scan ranked entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetUserEntries returns a user's entries across one leaderboard, joined
// through the owning snake. Kept as a model-layer query for a future
// account-facing handler; the account subsystem itself is out of scope.
func GetUserEntries(ctx context.Context, q dbtx.Querier, leaderboardID, userID uuid.UUID) ([]LeaderboardEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT le.id, le.leaderboard_id, le.snake_id, le.variant, le.mu, le.sigma, le.display_score,
			le.games_played, le.first_place_finishes, le.non_first_finishes,
			le.disabled_at, le.created_at, le.updated_at
		FROM leaderboard_entries le
		JOIN snakes s ON s.id = le.snake_id
		WHERE le.leaderboard_id = $1 AND s.owner_id = $2
		ORDER BY le.display_score DESC`, leaderboardID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user entries: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[LeaderboardEntry])
}

// CountActiveEntries returns the number of non-disabled entries on a
// leaderboard.
func CountActiveEntries(ctx context.Context, q dbtx.Querier, leaderboardID uuid.UUID) (int64, error) {
	var n int64
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM leaderboard_entries
		WHERE leaderboard_id = $1 AND disabled_at IS NULL`, leaderboardID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active entries: %w", err)
	}
	return n, nil
}
