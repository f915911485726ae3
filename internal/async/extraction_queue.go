package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/vinscan/internal/common"
)

// ExtractionQueue runs extractions on a fixed pool of workers.
type ExtractionQueue struct {
	proc     Processor
	onResult ResultHandler
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ExtractionQueue)

func WithWorkers(n int) Option {
	return func(q *ExtractionQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ExtractionQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ExtractionQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithResultHandler(h ResultHandler) Option {
	return func(q *ExtractionQueue) { q.onResult = h }
}

func NewExtractionQueue(proc Processor, logger *slog.Logger, opts ...Option) *ExtractionQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ExtractionQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ExtractionQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ExtractionQueue) process(workerID int, job Job) {
	ctx := common.WithSource(context.Background(), job.Path)
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	res := q.proc.ExtractFile(ctx, job.Path)
	if res.Found {
		q.logger.Info("processed image", "worker_id", workerID, "path", job.Path, "vin", res.VIN,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	} else {
		q.logger.Warn("no vin extracted", "worker_id", workerID, "path", job.Path)
	}
	if q.onResult != nil {
		q.onResult(job, res)
	}
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *ExtractionQueue) Enqueue(ctx context.Context, job Job) error {
	// The read lock stays held through the blocking send: Shutdown closes the
	// channel under the write lock, so it cannot close it under a waiting sender.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued image for extraction", "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *ExtractionQueue) Shutdown(ctx context.Context) {
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

var _ Queue = (*ExtractionQueue)(nil)
