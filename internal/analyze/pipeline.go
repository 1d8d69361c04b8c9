package analyze

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/billscan/internal/classify"
	"github.com/dvloznov/billscan/internal/detect"
	"github.com/dvloznov/billscan/internal/domain"
	"github.com/dvloznov/billscan/internal/statement"
)

// PipelineStep is a single stage of the statement analysis pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Document []byte
	MimeHint string

	Transactions []domain.Transaction
	Classified   classify.Outcome
	Candidates   []domain.RecurringBillCandidate
	Analysis     domain.StatementAnalysis

	Warnings []string
}

// ParseStep extracts normalized transactions from the raw statement bytes.
// Currency is stamped on every transaction; empty means the parser default.
type ParseStep struct {
	Currency string
}

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) error {
	txs, warnings, err := statement.ParseWithCurrency(state.Document, state.MimeHint, s.Currency)
	if err != nil {
		return err
	}
	state.Transactions = txs
	state.Warnings = append(state.Warnings, warnings...)
	return nil
}

// ClassifyStep assigns a category to every parsed transaction, falling back
// to rules when the AI backend fails.
type ClassifyStep struct {
	Controller *classify.Controller
}

func (s *ClassifyStep) Execute(ctx context.Context, state *PipelineState) error {
	outcome, err := s.Controller.Classify(ctx, state.Transactions)
	if err != nil {
		return err
	}
	state.Classified = outcome
	state.Warnings = append(state.Warnings, outcome.Warnings...)
	return nil
}

// DetectStep finds recurring bill candidates among the classified debits.
type DetectStep struct {
	Config detect.Config
}

func (s *DetectStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Candidates = detect.Detect(state.Classified.Transactions, s.Config)
	return nil
}

// AggregateStep builds the whole-statement report.
type AggregateStep struct{}

func (s *AggregateStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Analysis = Aggregate(state.Classified.Transactions, state.Candidates)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Result is the full output of one statement analysis run.
type Result struct {
	Transactions []domain.ClassifiedTransaction  `json:"transactions"`
	Candidates   []domain.RecurringBillCandidate `json:"recurring_candidates"`
	Analysis     domain.StatementAnalysis        `json:"analysis"`
	RunInfo      domain.RunInfo                  `json:"run_info"`
}

// Service runs the standard four-step analysis pipeline.
type Service struct {
	controller *classify.Controller
	detectCfg  detect.Config
	currency   string
	log        zerolog.Logger
}

// NewService wires a pipeline service around the given classification
// controller and detector thresholds. currency is stamped on parsed
// transactions; empty selects statement.DefaultCurrency.
func NewService(controller *classify.Controller, detectCfg detect.Config, currency string, log zerolog.Logger) *Service {
	return &Service{controller: controller, detectCfg: detectCfg, currency: currency, log: log}
}

// Analyze takes raw statement bytes and produces the full analysis result.
// mimeHint may be empty, in which case the format is sniffed from the bytes.
func (s *Service) Analyze(ctx context.Context, doc []byte, mimeHint string) (Result, error) {
	state := &PipelineState{Document: doc, MimeHint: mimeHint}
	pipe := NewPipeline(
		&ParseStep{Currency: s.currency},
		&ClassifyStep{Controller: s.controller},
		&DetectStep{Config: s.detectCfg},
		&AggregateStep{},
	)
	if err := pipe.Execute(ctx, state); err != nil {
		return Result{}, err
	}

	s.log.Info().
		Int("transactions", len(state.Transactions)).
		Int("candidates", len(state.Candidates)).
		Bool("used_fallback", state.Classified.UsedFallback).
		Msg("statement analysis complete")

	return Result{
		Transactions: state.Classified.Transactions,
		Candidates:   state.Candidates,
		Analysis:     state.Analysis,
		RunInfo: domain.RunInfo{
			UsedFallback:    state.Classified.UsedFallback,
			ParsingWarnings: state.Warnings,
			AIUsage:         state.Classified.AIUsage,
		},
	}, nil
}
