// Command worker drains a batch of statements from Cloud Storage through
// the analysis pipeline, recording each run in BigQuery when configured.
//
// Usage:
//
//	worker gs://statements/2025/march.pdf gs://statements/2025/april.pdf
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/billscan/internal/analyze"
	"github.com/dvloznov/billscan/internal/classify"
	"github.com/dvloznov/billscan/internal/config"
	"github.com/dvloznov/billscan/internal/gcs"
	infra "github.com/dvloznov/billscan/internal/infra/bigquery"
	"github.com/dvloznov/billscan/internal/jobs"
	"github.com/dvloznov/billscan/internal/jobs/inmemory"
	"github.com/dvloznov/billscan/internal/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Options{
		Service: "worker",
		Level:   os.Getenv("LOG_LEVEL"),
		JSON:    os.Getenv("LOG_FORMAT") == "json",
	})

	uris := os.Args[1:]
	if len(uris) == 0 {
		log.Fatal().Msg("no statement URIs given, expected gs://bucket/object arguments")
	}

	if err := run(log, uris); err != nil {
		log.Fatal().Err(err).Msg("worker exited")
	}
}

func run(log zerolog.Logger, uris []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var primary classify.BatchClassifier
	if cfg.GeminiAPIKey != "" {
		primary = classify.NewGeminiClassifier(cfg.GeminiModel, cfg.ClassifyBatchSize, cfg.ClassifyConcurrency)
	}
	controller := classify.NewController(primary, cfg.ClassifyTimeout, log)
	svc := analyze.NewService(controller, cfg.Detect, cfg.Currency, log)

	var store *infra.Store
	if cfg.BigQueryProject != "" {
		store, err = infra.NewStore(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(len(uris), 0, jobStore)
	defer queue.Close()

	handler := func(ctx context.Context, job jobs.Job) error {
		aj := job.(*jobs.AnalyzeStatementJob)
		jlog := logger.WithRun(log, aj.JobID)

		doc, err := gcs.Fetch(ctx, aj.GCSURI)
		if err != nil {
			return err
		}

		result, err := svc.Analyze(ctx, doc, aj.MimeHint)
		if err != nil {
			return err
		}
		aj.Result = &result

		jlog.Info().
			Str("uri", aj.GCSURI).
			Int("transactions", len(result.Transactions)).
			Int("candidates", len(result.Candidates)).
			Msg("statement analyzed")

		if store != nil {
			row := infra.NewAnalysisRunRow(gcs.Filename(aj.GCSURI), aj.MimeHint, result)
			if err := store.InsertAnalysisRun(ctx, row); err != nil {
				jlog.Warn().Err(err).Msg("recording analysis run failed")
			}
		}
		return nil
	}

	if err := queue.Start(ctx, handler); err != nil {
		return err
	}

	ids := make([]string, 0, len(uris))
	for _, uri := range uris {
		job := &jobs.AnalyzeStatementJob{GCSURI: uri}
		if err := queue.PublishAnalyzeStatement(ctx, job); err != nil {
			return err
		}
		ids = append(ids, job.JobID)
	}

	return waitForJobs(ctx, jobStore, ids, log)
}

// waitForJobs polls until every job reached a terminal state.
func waitForJobs(ctx context.Context, store jobs.JobStore, ids []string, log zerolog.Logger) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		done, failed := 0, 0
		for _, id := range ids {
			job, err := store.GetJob(ctx, id)
			if err != nil {
				continue
			}
			switch job.Status {
			case jobs.JobStatusCompleted:
				done++
			case jobs.JobStatusFailed:
				done++
				failed++
			}
		}
		if done == len(ids) {
			log.Info().Int("total", len(ids)).Int("failed", failed).Msg("batch finished")
			if failed > 0 {
				os.Exit(1)
			}
			return nil
		}
	}
}
