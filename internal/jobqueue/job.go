// Package jobqueue is a minimal durable, at-least-once job queue backed
// by Postgres. The core treats it as a dependency (see SPEC_FULL.md
// §4.E): callers enqueue a typed payload, a Worker claims and dispatches
// it to a registered Handler, and failures are retried with backoff.
package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a job's payload type. Handlers are registered per
// Kind; there is no string-switch dispatch inside the core packages
// that consume this queue.
type Kind string

const (
	KindRunMatch      Kind = "run_match"
	KindUpdateRatings Kind = "update_ratings"
)

// RunMatchPayload drives one match from creation to finished.
type RunMatchPayload struct {
	MatchID uuid.UUID `json:"match_id"`
}

// UpdateRatingsPayload invokes the rating engine for one leaderboard match.
type UpdateRatingsPayload struct {
	LeaderboardMatchID uuid.UUID `json:"leaderboard_match_id"`
}

// Job is one row of the jobs table.
type Job struct {
	ID              uuid.UUID       `db:"id"`
	Kind            Kind            `db:"kind"`
	Payload         json.RawMessage `db:"payload"`
	Description     string          `db:"description"`
	RunAt           time.Time       `db:"run_at"`
	LockedAt        *time.Time      `db:"locked_at"`
	ErrorCount      int             `db:"error_count"`
	LastErrorMessage *string        `db:"last_error_message"`
	CreatedAt       time.Time       `db:"created_at"`
}
