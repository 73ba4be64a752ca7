// Package async provides the batch extraction queue: a bounded worker pool
// that runs independent document extractions concurrently and records
// per-document status on a Board.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/schema"
)

// Job is one document extraction to run. Fields and Prompt are shared across
// a batch; the document is independent of its peers.
type Job struct {
	Document    extract.Document
	Fields      []schema.Field
	Prompt      string
	Model       string
	SubmittedAt time.Time
}

// Queue fans jobs out to workers. History appends happen in completion
// order, not submission order.
type Queue struct {
	orch    *extract.Orchestrator
	board   *extract.Board
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(orch *extract.Orchestrator, board *extract.Board, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		orch:    orch,
		board:   board,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.board.Start(job.Document.ID)

					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res, err := q.orch.Extract(ctx, job.Document, job.Fields, job.Prompt, job.Model)
					cancel()

					if err != nil {
						q.board.Fail(job.Document.ID, err.Error())
						q.logger.Error("extraction failed", "worker_id", workerID, "file", job.Document.Name, "error", err)
						continue
					}
					q.board.Complete(job.Document.ID, res.ID)
					q.logger.Info("extraction completed", "worker_id", workerID, "file", job.Document.Name, "result_id", res.ID)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue marks the document pending and submits it. Blocks when the queue
// is full; a closed queue drops the job with a warning.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "file", job.Document.Name)
		return nil
	}
	q.board.Enqueue(job.Document.ID)
	select {
	case q.ch <- job:
		q.logger.Info("queued document", "file", job.Document.Name)
	default:
		q.logger.Warn("queue full, applying backpressure", "file", job.Document.Name)
		q.ch <- job
	}
	return nil
}

// Shutdown closes the queue and waits for in-flight jobs to drain or the
// context to expire.
func (q *Queue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
