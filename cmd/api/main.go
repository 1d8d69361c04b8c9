// Command api serves the statement analysis HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/billscan/internal/analyze"
	"github.com/dvloznov/billscan/internal/api/handlers"
	"github.com/dvloznov/billscan/internal/classify"
	"github.com/dvloznov/billscan/internal/config"
	"github.com/dvloznov/billscan/internal/gcs"
	infra "github.com/dvloznov/billscan/internal/infra/bigquery"
	"github.com/dvloznov/billscan/internal/jobs"
	"github.com/dvloznov/billscan/internal/jobs/inmemory"
	"github.com/dvloznov/billscan/internal/logger"
	"github.com/dvloznov/billscan/internal/notionsync"
	"github.com/dvloznov/billscan/internal/review"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Options{
		Service: "api",
		Level:   os.Getenv("LOG_LEVEL"),
		JSON:    os.Getenv("LOG_FORMAT") == "json",
	})

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("api exited")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var primary classify.BatchClassifier
	if cfg.GeminiAPIKey != "" {
		primary = classify.NewGeminiClassifier(cfg.GeminiModel, cfg.ClassifyBatchSize, cfg.ClassifyConcurrency)
		log.Info().Str("model", cfg.GeminiModel).Msg("AI classification enabled")
	} else {
		log.Info().Msg("GEMINI_API_KEY not set, classification runs on rules")
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
		log.Info().Str("dataset", cfg.BigQueryDataset).Msg("BigQuery persistence enabled")
	}

	var notion notionsync.NotionService
	if cfg.NotionToken != "" && cfg.NotionDatabase != "" {
		notion = notionsync.NewNotionClient(cfg.NotionToken)
		log.Info().Msg("Notion export enabled")
	}

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(64, 0, jobStore)
	defer queue.Close()

	if err := queue.Start(ctx, analyzeJobHandler(svc, store, log)); err != nil {
		return err
	}

	sink := &confirmSink{store: store, notion: notion, notionDB: cfg.NotionDatabase, log: log}

	app := fiber.New(fiber.Config{
		BodyLimit:    32 << 20, // statements are small, PDFs can be scans
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	})
	app.Use(fiberrecover.New())

	h := handlers.New(svc, queue, jobStore, sink, log)
	h.Register(app)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- app.Listen(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

// analyzeJobHandler processes async analysis jobs: fetch the statement,
// run the pipeline, attach the result, record provenance.
func analyzeJobHandler(svc *analyze.Service, store *infra.Store, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		aj, ok := job.(*jobs.AnalyzeStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type %s", job.GetType())
		}

		doc := aj.Document
		filename := aj.Filename
		if len(doc) == 0 {
			var err error
			doc, err = gcs.Fetch(ctx, aj.GCSURI)
			if err != nil {
				return err
			}
			filename = gcs.Filename(aj.GCSURI)
		}

		result, err := svc.Analyze(ctx, doc, aj.MimeHint)
		if err != nil {
			return err
		}
		aj.Result = &result

		if store != nil {
			row := infra.NewAnalysisRunRow(filename, aj.MimeHint, result)
			if err := store.InsertAnalysisRun(ctx, row); err != nil {
				// analysis succeeded, provenance is best effort
				log.Warn().Err(err).Str("job_id", aj.JobID).Msg("recording analysis run failed")
			}
		}
		return nil
	}
}

// confirmSink persists confirmed payments to BigQuery and exports them to
// Notion. Both targets are optional.
type confirmSink struct {
	store    *infra.Store
	notion   notionsync.NotionService
	notionDB string
	log      zerolog.Logger
}

func (s *confirmSink) StoreConfirmed(ctx context.Context, runID string, payments []review.ImportPayment) error {
	if s.store != nil {
		if err := s.store.InsertPayments(ctx, infra.NewPaymentRows(runID, payments)); err != nil {
			return err
		}
	}
	if s.notion != nil {
		ctx = logger.WithContext(ctx, s.log)
		if err := notionsync.SyncPayments(ctx, s.notion, s.notionDB, payments, false); err != nil {
			return err
		}
	}
	return nil
}
