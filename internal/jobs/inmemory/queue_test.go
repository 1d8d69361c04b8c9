package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/billscan/internal/jobs"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, 1, store)
	defer q.Close()

	var handled atomic.Int32
	handler := func(ctx context.Context, job jobs.Job) error {
		handled.Add(1)
		return nil
	}
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	job := &jobs.AnalyzeStatementJob{GCSURI: "gs://statements/march.pdf"}
	if err := q.PublishAnalyzeStatement(context.Background(), job); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("publish did not assign a job id")
	}

	waitFor(t, 2*time.Second, func() bool {
		got, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && got.Status == jobs.JobStatusCompleted
	})
	if handled.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", handled.Load())
	}
}

func TestQueueRetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, 1, store)
	defer q.Close()

	var attempts atomic.Int32
	handler := func(ctx context.Context, job jobs.Job) error {
		attempts.Add(1)
		return errors.New("boom")
	}
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatal(err)
	}

	job := &jobs.AnalyzeStatementJob{GCSURI: "gs://statements/bad.pdf", MaxRetries: 1}
	if err := q.PublishAnalyzeStatement(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 5*time.Second, func() bool {
		got, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && got.Status == jobs.JobStatusFailed
	})
	if got := attempts.Load(); got != 2 {
		t.Errorf("handler ran %d times, want initial attempt plus one retry", got)
	}
	final, err := store.GetJob(context.Background(), job.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Error == "" {
		t.Error("failed job has no error message")
	}
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	err := q.PublishAnalyzeStatement(context.Background(), &jobs.AnalyzeStatementJob{})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

func TestStoreFiltersAndCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	for i, status := range []jobs.JobStatus{jobs.JobStatusPending, jobs.JobStatusCompleted, jobs.JobStatusCompleted} {
		job := &jobs.AnalyzeStatementJob{
			JobID:     string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	completed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 2 {
		t.Fatalf("got %d completed jobs, want 2", len(completed))
	}
	if completed[0].CreatedAt.Before(completed[1].CreatedAt) {
		t.Error("jobs not sorted newest first")
	}

	// Mutating a returned copy must not touch the stored job.
	completed[0].Status = jobs.JobStatusFailed
	again, err := store.GetJob(ctx, completed[0].JobID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != jobs.JobStatusCompleted {
		t.Error("store returned a shared pointer, not a copy")
	}

	if _, err := store.GetJob(ctx, "missing"); err == nil {
		t.Error("GetJob found a job that was never saved")
	}
}
