package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queue enqueues jobs and claims them for execution. It is the only
// thing in this package that talks to the pool directly — Worker and
// Handler never see *pgxpool.Pool.
type Queue struct {
	pool *pgxpool.Pool
}

// NewQueue wraps a connection pool as a job queue.
func NewQueue(pool *pgxpool.Pool) *Queue {
	return &Queue{pool: pool}
}

// Enqueue schedules payload to run at runAt (immediately, if zero).
// description is a human-readable label stored alongside the job,
// useful for admin inspection and log correlation.
func (q *Queue) Enqueue(ctx context.Context, kind Kind, payload any, description string, runAt time.Time) (uuid.UUID, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal job payload: %w", err)
	}
	if runAt.IsZero() {
		runAt = time.Now()
	}

	var id uuid.UUID
	err = q.pool.QueryRow(ctx, `
		INSERT INTO jobs (kind, payload, description, run_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, kind, raw, description, runAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// EnqueueRunMatch is a typed convenience wrapper over Enqueue.
func (q *Queue) EnqueueRunMatch(ctx context.Context, matchID uuid.UUID, description string) error {
	_, err := q.Enqueue(ctx, KindRunMatch, RunMatchPayload{MatchID: matchID}, description, time.Time{})
	return err
}

// EnqueueUpdateRatings is a typed convenience wrapper over Enqueue.
func (q *Queue) EnqueueUpdateRatings(ctx context.Context, leaderboardMatchID uuid.UUID, description string) error {
	_, err := q.Enqueue(ctx, KindUpdateRatings, UpdateRatingsPayload{LeaderboardMatchID: leaderboardMatchID}, description, time.Time{})
	return err
}

// claimNextRunnable claims one runnable job: run_at has passed, it's
// either never been locked or its lock is older than staleLock (a
// crashed worker's lease expires), and it hasn't exceeded maxAttempts.
// FOR UPDATE SKIP LOCKED lets many worker goroutines/processes poll
// concurrently without claiming the same row twice.
func (q *Queue) claimNextRunnable(ctx context.Context, maxAttempts int, staleLock time.Duration) (*Job, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id, kind, payload, description, run_at, locked_at, error_count, last_error_message, created_at
		FROM jobs
		WHERE run_at <= now()
			AND error_count < $1
			AND (locked_at IS NULL OR locked_at < $2)
		ORDER BY run_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, maxAttempts, time.Now().Add(-staleLock))

	var j Job
	err = row.Scan(&j.ID, &j.Kind, &j.Payload, &j.Description, &j.RunAt, &j.LockedAt,
		&j.ErrorCount, &j.LastErrorMessage, &j.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE jobs SET locked_at = now() WHERE id = $1`, j.ID); err != nil {
		return nil, fmt.Errorf("lock claimed job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return &j, nil
}

// markSucceeded deletes a completed job. Completed jobs don't need to
// linger; the audit trail lives in match_results / match_turns instead.
func (q *Queue) markSucceeded(ctx context.Context, id uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark job succeeded: %w", err)
	}
	return nil
}

// markFailed records the error, releases the lock, and reschedules the
// job after backoff so the next claim doesn't immediately re-run it.
func (q *Queue) markFailed(ctx context.Context, id uuid.UUID, cause error, backoff time.Duration) error {
	msg := cause.Error()
	_, err := q.pool.Exec(ctx, `
		UPDATE jobs
		SET locked_at = NULL,
			error_count = error_count + 1,
			last_error_message = $2,
			run_at = now() + $3
		WHERE id = $1`, id, msg, backoff)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

// PendingCount returns the number of jobs not yet locked and due to
// run — a depth metric left unwired to backpressure by default, see
// SPEC_FULL.md Open Questions.
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := q.pool.QueryRow(ctx, `
		SELECT count(*) FROM jobs WHERE locked_at IS NULL AND run_at <= now()`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending jobs: %w", err)
	}
	return n, nil
}
