package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IngestQueue ingests queued files on a fixed pool of workers. Each job runs
// under its own timeout, detached from the caller's context.
type IngestQueue struct {
	ingestor PathIngestor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onDone   func(Job, Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

// Result is reported to the WithResultHook callback after each job.
type Result struct {
	DocumentID string
	Status     string
	Err        error
}

type Option func(*IngestQueue)

func WithWorkers(n int) Option {
	return func(q *IngestQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *IngestQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *IngestQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHook registers fn to run on the worker after every job.
func WithResultHook(fn func(Job, Result)) Option {
	return func(q *IngestQueue) {
		q.onDone = fn
	}
}

func NewIngestQueue(ingestor PathIngestor, logger *slog.Logger, opts ...Option) *IngestQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &IngestQueue{
		ingestor: ingestor,
		logger:   logger,
		workers:  2,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *IngestQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *IngestQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	out, err := q.ingestor.IngestPath(ctx, job.TenantID, job.Path)
	res := Result{Status: string(out.Status), Err: err}
	if out.DocumentID != uuid.Nil {
		res.DocumentID = out.DocumentID.String()
	}
	if err != nil {
		q.logger.Error("async.ingest.failed", "worker_id", workerID, "path", job.Path, "error", err)
	} else {
		q.logger.Info("async.ingest.done",
			"worker_id", workerID,
			"path", job.Path,
			"document_id", out.DocumentID,
			"status", out.Status,
			"segments", out.SegmentCount,
			"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if q.onDone != nil {
		q.onDone(job, res)
	}
}

// Enqueue blocks while the buffer is full. Jobs offered after Shutdown are dropped.
func (q *IngestQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "path", job.Path)
		return nil
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.enqueued", "path", job.Path)
	default:
		q.logger.Warn("async.queue_full", "path", job.Path)
		q.ch <- job
	}
	return nil
}

// Shutdown stops accepting jobs and waits for queued ones until ctx is done.
func (q *IngestQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
