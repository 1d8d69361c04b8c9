package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/billscan/internal/analyze"
)

// AnalysisRunRow records the provenance of one statement analysis.
type AnalysisRunRow struct {
	AnalysisRunID string `bigquery:"analysis_run_id"` // REQUIRED

	SourceFilename string              `bigquery:"source_filename"` // REQUIRED
	SourceMimeType bigquery.NullString `bigquery:"source_mime_type"`

	TransactionCount int64 `bigquery:"transaction_count"`
	CandidateCount   int64 `bigquery:"candidate_count"`

	UsedFallback bool     `bigquery:"used_fallback"`
	Warnings     []string `bigquery:"warnings"` // REPEATED STRING

	Model        bigquery.NullString  `bigquery:"model"`
	TokensInput  bigquery.NullInt64   `bigquery:"tokens_input"`
	TokensOutput bigquery.NullInt64   `bigquery:"tokens_output"`
	CostEstimate bigquery.NullFloat64 `bigquery:"cost_estimate_usd"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// NewAnalysisRunRow flattens a pipeline result into a provenance row and
// returns the generated run id.
func NewAnalysisRunRow(filename, mimeType string, res analyze.Result) *AnalysisRunRow {
	row := &AnalysisRunRow{
		AnalysisRunID:    uuid.NewString(),
		SourceFilename:   filename,
		SourceMimeType:   bigquery.NullString{StringVal: mimeType, Valid: mimeType != ""},
		TransactionCount: int64(len(res.Transactions)),
		CandidateCount:   int64(len(res.Candidates)),
		UsedFallback:     res.RunInfo.UsedFallback,
		Warnings:         res.RunInfo.ParsingWarnings,
		CreatedTS:        time.Now().UTC(),
	}
	if u := res.RunInfo.AIUsage; u != nil {
		row.Model = bigquery.NullString{StringVal: u.Model, Valid: true}
		row.TokensInput = bigquery.NullInt64{Int64: u.InputTokens, Valid: true}
		row.TokensOutput = bigquery.NullInt64{Int64: u.OutputTokens, Valid: true}
		row.CostEstimate = bigquery.NullFloat64{Float64: u.CostEstimate, Valid: true}
	}
	return row
}

// InsertAnalysisRun streams one provenance row.
func (s *Store) InsertAnalysisRun(ctx context.Context, row *AnalysisRunRow) error {
	if err := s.table(analysisRunsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("bigquery: inserting analysis run %s: %w", row.AnalysisRunID, err)
	}
	return nil
}
