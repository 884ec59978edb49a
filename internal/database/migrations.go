package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations executes all database migrations
func RunMigrations(db *pgxpool.Pool) error {
	migrations := []string{
		createSnakesTable,
		createLeaderboardsTable,
		createLeaderboardEntriesTable,
		createMatchesTable,
		createMatchParticipantsTable,
		createLeaderboardMatchesTable,
		createMatchResultsTable,
		createMatchTurnsTable,
		createJobsTable,
		createIndexes,
	}

	for i, migration := range migrations {
		if err := executeMigration(db, migration, i+1); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// executeMigration runs a single migration
func executeMigration(db *pgxpool.Pool, migration string, version int) error {
	_, err := db.Exec(context.Background(), migration)
	if err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", version, err)
	}
	return nil
}

// Database schema migrations

const createSnakesTable = `
CREATE TABLE IF NOT EXISTS snakes (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    owner_id UUID NOT NULL,
    name VARCHAR(100) NOT NULL,
    url TEXT NOT NULL,
    visibility VARCHAR(10) NOT NULL DEFAULT 'public',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createLeaderboardsTable = `
CREATE TABLE IF NOT EXISTS leaderboards (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) UNIQUE NOT NULL,
    disabled_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createLeaderboardEntriesTable = `
CREATE TABLE IF NOT EXISTS leaderboard_entries (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    leaderboard_id UUID NOT NULL REFERENCES leaderboards(id) ON DELETE CASCADE,
    snake_id UUID NOT NULL REFERENCES snakes(id) ON DELETE CASCADE,
    variant INTEGER NOT NULL DEFAULT 0,
    mu DOUBLE PRECISION NOT NULL,
    sigma DOUBLE PRECISION NOT NULL,
    display_score DOUBLE PRECISION NOT NULL,
    games_played INTEGER NOT NULL DEFAULT 0,
    first_place_finishes INTEGER NOT NULL DEFAULT 0,
    non_first_finishes INTEGER NOT NULL DEFAULT 0,
    disabled_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (leaderboard_id, snake_id, variant)
);
`

const createMatchesTable = `
CREATE TABLE IF NOT EXISTS matches (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    board_width INTEGER NOT NULL,
    board_height INTEGER NOT NULL,
    rule_variant VARCHAR(50) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'waiting',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    enqueued_at TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createMatchParticipantsTable = `
CREATE TABLE IF NOT EXISTS match_participants (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
    leaderboard_entry_id UUID REFERENCES leaderboard_entries(id) ON DELETE SET NULL,
    snake_id UUID NOT NULL REFERENCES snakes(id),
    placement INTEGER
);
`

const createLeaderboardMatchesTable = `
CREATE TABLE IF NOT EXISTS leaderboard_matches (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    leaderboard_id UUID NOT NULL REFERENCES leaderboards(id) ON DELETE CASCADE,
    match_id UUID NOT NULL UNIQUE REFERENCES matches(id) ON DELETE CASCADE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createMatchResultsTable = `
CREATE TABLE IF NOT EXISTS match_results (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    leaderboard_match_id UUID NOT NULL REFERENCES leaderboard_matches(id) ON DELETE CASCADE,
    participant_entry_id UUID NOT NULL REFERENCES leaderboard_entries(id) ON DELETE CASCADE,
    placement INTEGER NOT NULL,
    mu_before DOUBLE PRECISION NOT NULL,
    mu_after DOUBLE PRECISION NOT NULL,
    sigma_before DOUBLE PRECISION NOT NULL,
    sigma_after DOUBLE PRECISION NOT NULL,
    display_score_delta DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (leaderboard_match_id, participant_entry_id)
);
`

const createMatchTurnsTable = `
CREATE TABLE IF NOT EXISTS match_turns (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
    turn_number INTEGER NOT NULL,
    state_json JSONB NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (match_id, turn_number)
);
`

const createJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    kind VARCHAR(50) NOT NULL,
    payload JSONB NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    run_at TIMESTAMP NOT NULL DEFAULT now(),
    locked_at TIMESTAMP,
    error_count INTEGER NOT NULL DEFAULT 0,
    last_error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_active ON leaderboard_entries(leaderboard_id, display_score DESC) WHERE disabled_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_match_participants_match ON match_participants(match_id);
CREATE INDEX IF NOT EXISTS idx_match_turns_match ON match_turns(match_id, turn_number);
CREATE INDEX IF NOT EXISTS idx_jobs_claimable ON jobs(run_at) WHERE locked_at IS NULL;
`
