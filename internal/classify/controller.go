package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/billscan/internal/domain"
	"github.com/rs/zerolog"
)

// RunState is the controller's position in a single classification run.
type RunState string

const (
	StateStart             RunState = "START"
	StateClassifying       RunState = "CLASSIFYING"
	StateClassified        RunState = "CLASSIFIED"
	StateFallbackTriggered RunState = "FALLBACK_TRIGGERED"
	StateDone              RunState = "DONE"
)

// Outcome carries everything the caller needs to know about how a run's
// classification went.
type Outcome struct {
	Transactions []domain.ClassifiedTransaction
	Mode         Mode
	UsedFallback bool
	Warnings     []string
	AIUsage      *domain.AIUsage
}

// Controller orchestrates the primary-vs-fallback decision for one run.
// The primary path gets a single attempt under a timeout; any failure
// (timeout, service error, schema violation) demotes the run to the rule
// backend immediately, never a retry, so the caller's latency stays bounded.
type Controller struct {
	primary  BatchClassifier
	fallback *RuleClassifier
	timeout  time.Duration
	usage    func() domain.AIUsage // nil when the primary reports no usage
	log      zerolog.Logger
}

// NewController wires the two backends. primary may be nil, which forces
// rule-based classification (e.g. no API key configured, or --no-ai).
func NewController(primary BatchClassifier, timeout time.Duration, log zerolog.Logger) *Controller {
	c := &Controller{
		primary:  primary,
		fallback: NewRuleClassifier(),
		timeout:  timeout,
		log:      log,
	}
	if g, ok := primary.(*GeminiClassifier); ok && g != nil {
		c.usage = g.Usage
	}
	return c
}

// Classify runs the state machine over one batch of transactions. It always
// completes with a total classification; the returned Outcome says which
// backend produced it.
func (c *Controller) Classify(ctx context.Context, txs []domain.Transaction) (Outcome, error) {
	items := Items(txs)
	outcome := Outcome{Mode: ModeAI}

	state := StateClassifying
	if c.primary == nil {
		state = StateFallbackTriggered
		outcome.Warnings = append(outcome.Warnings, "AI classification not configured; used rule-based categories")
	} else {
		primCtx, cancel := context.WithTimeout(ctx, c.timeout)
		verdicts, err := c.primary.ClassifyBatch(primCtx, items)
		cancel()
		if err != nil {
			state = StateFallbackTriggered
			warning := fallbackWarning(err)
			outcome.Warnings = append(outcome.Warnings, warning)
			c.log.Warn().Err(err).Str("state", string(state)).Msg("primary classifier failed, demoting to rules")
		} else {
			state = StateClassified
			outcome.Transactions = Apply(txs, verdicts)
			if c.usage != nil {
				u := c.usage()
				outcome.AIUsage = &u
			}
		}
	}

	if state == StateFallbackTriggered {
		verdicts, err := c.fallback.ClassifyBatch(ctx, items)
		if err != nil {
			// the rule backend cannot fail; guard anyway
			return Outcome{}, fmt.Errorf("fallback classification: %w", err)
		}
		outcome.Transactions = Apply(txs, verdicts)
		outcome.Mode = ModeRules
		outcome.UsedFallback = true
	}

	return outcome, nil
}

func fallbackWarning(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "AI classification timed out; used rule-based categories"
	case errors.Is(err, ErrSchemaInvalid):
		return "AI classification returned an invalid response; used rule-based categories"
	default:
		return "AI classification unavailable; used rule-based categories"
	}
}
