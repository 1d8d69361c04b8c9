// Package handlers exposes the statement analysis pipeline over HTTP.
package handlers

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/billscan/internal/analyze"
	"github.com/dvloznov/billscan/internal/domain"
	"github.com/dvloznov/billscan/internal/jobs"
	"github.com/dvloznov/billscan/internal/review"
)

// PaymentSink persists confirmed payments. Nil disables persistence.
type PaymentSink interface {
	StoreConfirmed(ctx context.Context, runID string, payments []review.ImportPayment) error
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	svc       *analyze.Service
	publisher jobs.Publisher
	jobStore  jobs.JobStore
	sink      PaymentSink
	log       zerolog.Logger
}

// New wires a handler set. publisher, jobStore, and sink may be nil, which
// disables the async endpoints and persistence respectively.
func New(svc *analyze.Service, publisher jobs.Publisher, jobStore jobs.JobStore, sink PaymentSink, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, publisher: publisher, jobStore: jobStore, sink: sink, log: log}
}

// Register mounts all routes on the app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/import/upload", h.HandleUpload)
	app.Post("/api/import/confirm", h.HandleConfirm)
	if h.publisher != nil && h.jobStore != nil {
		app.Post("/api/analyze/async", h.HandleAnalyzeAsync)
		app.Get("/api/jobs/:id", h.HandleGetJob)
		app.Get("/api/jobs", h.HandleListJobs)
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// UploadResponse is the preview returned for an uploaded statement.
type UploadResponse struct {
	AnalysisRunID string         `json:"analysis_run_id"`
	Result        analyze.Result `json:"result"`
}

// HandleUpload runs the full pipeline on an uploaded statement and returns
// the preview: nothing is persisted until the user confirms.
func (h *Handler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("statement")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no file uploaded, use form field 'statement'",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot open upload"})
	}
	defer f.Close()

	doc, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot read upload"})
	}

	result, err := h.svc.Analyze(c.Context(), doc, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		h.log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("statement analysis rejected")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(UploadResponse{
		AnalysisRunID: uuid.NewString(),
		Result:        result,
	})
}

// ConfirmRequest finalizes a review: candidates come back from the preview
// with the user's edits and exclusions applied on the server side.
type ConfirmRequest struct {
	AnalysisRunID string                          `json:"analysis_run_id"`
	Candidates    []domain.RecurringBillCandidate `json:"candidates"`
	Edits         map[string]review.Edit          `json:"edits,omitempty"`
	Exclude       []string                        `json:"exclude,omitempty"`
}

// ConfirmResponse returns the confirmed payment list.
type ConfirmResponse struct {
	AnalysisRunID string                 `json:"analysis_run_id"`
	Payments      []review.ImportPayment `json:"payments"`
}

// HandleConfirm applies review decisions and persists the confirmed
// payments when a sink is configured.
func (h *Handler) HandleConfirm(c *fiber.Ctx) error {
	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if len(req.Candidates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no candidates to confirm"})
	}
	if req.AnalysisRunID == "" {
		req.AnalysisRunID = uuid.NewString()
	}

	session := review.NewSession(req.Candidates)
	for id, edit := range req.Edits {
		if err := session.Apply(id, edit); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	for _, id := range req.Exclude {
		if err := session.Exclude(id); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	payments := session.BuildImport()
	if h.sink != nil {
		if err := h.sink.StoreConfirmed(c.Context(), req.AnalysisRunID, payments); err != nil {
			h.log.Error().Err(err).Str("run_id", req.AnalysisRunID).Msg("persisting confirmed payments failed")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "persisting payments failed"})
		}
	}

	h.log.Info().Str("run_id", req.AnalysisRunID).Int("payments", len(payments)).Msg("import confirmed")
	return c.JSON(ConfirmResponse{AnalysisRunID: req.AnalysisRunID, Payments: payments})
}

// AsyncRequest queues a statement already sitting in Cloud Storage.
type AsyncRequest struct {
	GCSURI   string `json:"gcs_uri"`
	MimeHint string `json:"mime_hint,omitempty"`
}

// HandleAnalyzeAsync enqueues an analysis job and returns its id.
func (h *Handler) HandleAnalyzeAsync(c *fiber.Ctx) error {
	var req AsyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if req.GCSURI == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "gcs_uri is required"})
	}

	job := &jobs.AnalyzeStatementJob{GCSURI: req.GCSURI, MimeHint: req.MimeHint}
	if err := h.publisher.PublishAnalyzeStatement(c.Context(), job); err != nil {
		h.log.Error().Err(err).Str("gcs_uri", req.GCSURI).Msg("enqueueing analysis job failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "queue unavailable"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": job.JobID,
		"status": job.Status,
	})
}

// HandleGetJob returns one job's state, including its result once done.
func (h *Handler) HandleGetJob(c *fiber.Ctx) error {
	job, err := h.jobStore.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	return c.JSON(job)
}

// HandleListJobs lists jobs, optionally filtered by ?status=.
func (h *Handler) HandleListJobs(c *fiber.Ctx) error {
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(c.Query("status")),
		Limit:  c.QueryInt("limit", 50),
	}
	list, err := h.jobStore.ListJobs(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "listing jobs failed"})
	}
	return c.JSON(fiber.Map{"jobs": list, "count": len(list)})
}
