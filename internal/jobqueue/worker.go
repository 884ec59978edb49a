package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Handler processes one job's payload. It receives the raw JSON so the
// registry in this package stays free of per-domain types.
type Handler func(ctx context.Context, payload []byte) error

// Registry maps a job Kind to its Handler. Dispatch in Worker never
// switches on Kind directly — it's always a registry lookup (see
// SPEC_FULL.md §9, "multiple job types behind one queue").
type Registry struct {
	handlers map[Kind]Handler
}

// NewRegistry returns an empty registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]Handler)}
}

// Register associates a Kind with the Handler that processes it.
func (r *Registry) Register(kind Kind, h Handler) {
	r.handlers[kind] = h
}

func (r *Registry) get(kind Kind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// WorkerConfig tunes the poll/retry behavior.
type WorkerConfig struct {
	Concurrency   int
	PollInterval  time.Duration
	MaxAttempts   int
	StaleLockTime time.Duration
	BaseBackoff   time.Duration
}

// DefaultWorkerConfig holds the poll, retry and backoff values
// cmd/server uses; it takes Concurrency from JOB_WORKER_CONCURRENCY.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Concurrency:   4,
		PollInterval:  1 * time.Second,
		MaxAttempts:   5,
		StaleLockTime: 10 * time.Minute,
		BaseBackoff:   5 * time.Second,
	}
}

// Worker polls the queue and dispatches claimed jobs to the registry.
// Many goroutines (and, with a shared Postgres instance, many
// processes) can run a Worker concurrently: FOR UPDATE SKIP LOCKED in
// claimNextRunnable ensures a job is only ever handed to one of them.
type Worker struct {
	queue    *Queue
	registry *Registry
	log      *slog.Logger
	cfg      WorkerConfig
}

// NewWorker wires a Worker to its queue, handler registry, and logger.
func NewWorker(queue *Queue, registry *Registry, log *slog.Logger, cfg WorkerConfig) *Worker {
	return &Worker{queue: queue, registry: registry, log: log, cfg: cfg}
}

// Start launches Concurrency poll loops and returns immediately. Every
// loop stops when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	n := w.cfg.Concurrency
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx, workerID)
		}
	}
}

func (w *Worker) tick(ctx context.Context, workerID int) {
	job, err := w.queue.claimNextRunnable(ctx, w.cfg.MaxAttempts, w.cfg.StaleLockTime)
	if err != nil {
		w.log.Warn("claim job failed", "worker_id", workerID, "error", err)
		return
	}
	if job == nil {
		return
	}

	w.run(ctx, workerID, job)
}

func (w *Worker) run(ctx context.Context, workerID int, job *Job) {
	handler, ok := w.registry.get(job.Kind)
	if !ok {
		w.fail(ctx, job, fmt.Errorf("no handler registered for job kind %q", job.Kind))
		return
	}

	err := w.invoke(ctx, handler, job)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	if err := w.queue.markSucceeded(ctx, job.ID); err != nil {
		w.log.Error("failed to delete completed job", "worker_id", workerID, "job_id", job.ID, "error", err)
	}
}

// invoke wraps the handler call with panic recovery so a single bad job
// cannot take down a worker goroutine.
func (w *Worker) invoke(ctx context.Context, h Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return h(ctx, job.Payload)
}

func (w *Worker) fail(ctx context.Context, job *Job, cause error) {
	backoff := w.cfg.BaseBackoff * time.Duration(1<<uint(job.ErrorCount))
	w.log.Warn("job failed", "job_id", job.ID, "kind", job.Kind, "attempt", job.ErrorCount+1, "error", cause, "backoff", backoff)
	if err := w.queue.markFailed(ctx, job.ID, cause, backoff); err != nil {
		w.log.Error("failed to record job failure", "job_id", job.ID, "error", err)
	}
}
