// Package inmemory implements the jobs interfaces on Go channels. Suitable
// for single-instance deployments; a multi-instance setup should swap in
// Cloud Tasks or Pub/Sub behind the same interfaces.
package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/billscan/internal/jobs"
)

const (
	defaultWorkers    = 3
	defaultMaxRetries = 2
)

// ErrClosed is returned when publishing to or starting a closed queue.
var ErrClosed = errors.New("job queue closed")

// Queue is an in-memory publisher and consumer. Safe for concurrent use.
type Queue struct {
	tasks   chan *jobs.AnalyzeStatementJob
	quit    chan struct{}
	store   jobs.JobStore
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue creates a queue holding up to bufferSize pending jobs before
// publishing blocks. workers <= 0 selects the default worker count.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Queue{
		tasks:   make(chan *jobs.AnalyzeStatementJob, bufferSize),
		quit:    make(chan struct{}),
		store:   store,
		workers: workers,
	}
}

func (q *Queue) persist(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
	if q.store == nil {
		return nil
	}
	return q.store.SaveJob(ctx, job)
}

// PublishAnalyzeStatement enqueues a job, filling in id, status, and
// timestamps when absent.
func (q *Queue) PublishAnalyzeStatement(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}
	if err := q.persist(ctx, job); err != nil {
		return err
	}

	select {
	case q.tasks <- job:
		return nil
	case <-q.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the worker pool. It returns immediately; workers run until
// ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.runWorker(ctx, handler)
		}()
	}
	return nil
}

func (q *Queue) runWorker(ctx context.Context, handler jobs.JobHandler) {
	for {
		select {
		case job, ok := <-q.tasks:
			if !ok || job == nil {
				return
			}
			q.attempt(ctx, job, handler)
		case <-q.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// attempt executes one handler run and applies the retry policy: failed
// attempts are re-enqueued with linear backoff until MaxRetries is spent.
func (q *Queue) attempt(ctx context.Context, job *jobs.AnalyzeStatementJob, handler jobs.JobHandler) {
	started := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &started
	_ = q.persist(ctx, job)

	err := handler(ctx, job)

	finished := time.Now()
	job.CompletedAt = &finished
	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		q.scheduleRetry(ctx, job)
	default:
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
	}
	_ = q.persist(ctx, job)
}

func (q *Queue) scheduleRetry(ctx context.Context, job *jobs.AnalyzeStatementJob) {
	job.RetryCount++
	job.Status = jobs.JobStatusRetrying

	delay := time.Duration(job.RetryCount) * time.Second
	time.AfterFunc(delay, func() {
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		_ = q.PublishAnalyzeStatement(ctx, job)
	})
}

// Stop closes the queue and waits for in-flight jobs, bounded by ctx.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
