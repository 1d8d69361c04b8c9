package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/billscan/internal/domain"
	"google.golang.org/genai"
)

const classifyPrompt = `You are a bank transaction classifier.

For EVERY input line, assign exactly one category from this list:
Mortgage_Rent, Loans, Credit_Cards, Utilities, Insurance, Investments,
Subscriptions, Income_Payroll, Shopping, Travel_Entertainment, Transfers_In,
Transfers_Out, Cash_Withdrawal, Fees, Other

Each input line has the form "<direction> <descriptor>", where direction is
CREDIT (money in) or DEBIT (money out).

Also decide, per line, whether the descriptor looks like a recurring bill or
subscription (true/false).

Output STRICT JSON only: a JSON array with EXACTLY one object per input line,
in the same order, each object shaped as
{"category": "<one of the list>", "is_recurring": <bool>}.
Do NOT wrap the response in code fences. Output must begin with "[" and end
with "]".

INPUT LINES:
`

// GeminiClassifier is the model-backed primary classification path. Large
// inputs are split into fixed-size batches issued with bounded concurrency;
// verdicts are reassembled in input order.
type GeminiClassifier struct {
	model       string
	batchSize   int
	concurrency int

	mu    sync.Mutex
	usage domain.AIUsage

	// generate is swappable in tests; defaults to a real genai call.
	generate func(ctx context.Context, prompt string) (string, *genai.GenerateContentResponseUsageMetadata, error)
}

// NewGeminiClassifier builds the primary backend. batchSize and concurrency
// guard the per-run token budget and the external load respectively.
func NewGeminiClassifier(model string, batchSize, concurrency int) *GeminiClassifier {
	if batchSize <= 0 {
		batchSize = 100
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	c := &GeminiClassifier{
		model:       model,
		batchSize:   batchSize,
		concurrency: concurrency,
		usage:       domain.AIUsage{Model: model},
	}
	c.generate = c.generateWithModel
	return c
}

// Usage reports accumulated token spend across all batches of this run.
func (c *GeminiClassifier) Usage() domain.AIUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// ClassifyBatch implements BatchClassifier. Any failure of any batch fails
// the whole call; the Controller handles the demotion to rules.
func (c *GeminiClassifier) ClassifyBatch(ctx context.Context, items []Item) ([]Verdict, error) {
	if len(items) == 0 {
		return nil, nil
	}

	type chunk struct {
		start int
		items []Item
	}
	var chunks []chunk
	for start := 0; start < len(items); start += c.batchSize {
		end := start + c.batchSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, chunk{start: start, items: items[start:end]})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	verdicts := make([]Verdict, len(items))
	sem := make(chan struct{}, c.concurrency)
	errCh := make(chan error, len(chunks))
	var wg sync.WaitGroup

	for _, ch := range chunks {
		// stop issuing further batches once the run is cancelled
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(ch chunk) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errCh <- mapContextErr(ctx.Err())
				return
			}
			vs, err := c.classifyChunk(ctx, ch.items)
			if err != nil {
				errCh <- err
				cancel()
				return
			}
			copy(verdicts[ch.start:], vs)
		}(ch)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, mapContextErr(err)
	}
	return verdicts, nil
}

func (c *GeminiClassifier) classifyChunk(ctx context.Context, items []Item) ([]Verdict, error) {
	var b strings.Builder
	b.WriteString(classifyPrompt)
	for _, item := range items {
		b.WriteString(string(item.Direction))
		b.WriteByte(' ')
		b.WriteString(item.Descriptor)
		b.WriteByte('\n')
	}

	raw, usage, err := c.generate(ctx, b.String())
	if err != nil {
		if mapped := mapContextErr(ctx.Err()); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	c.recordUsage(usage)

	verdicts, err := decodeVerdicts(raw, len(items))
	if err != nil {
		return nil, err
	}
	return verdicts, nil
}

func (c *GeminiClassifier) generateWithModel(ctx context.Context, prompt string) (string, *genai.GenerateContentResponseUsageMetadata, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", nil, fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}
	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", nil, fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", nil, fmt.Errorf("empty response from model")
	}
	return text, resp.UsageMetadata, nil
}

func (c *GeminiClassifier) recordUsage(meta *genai.GenerateContentResponseUsageMetadata) {
	if meta == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.InputTokens += int64(meta.PromptTokenCount)
	c.usage.OutputTokens += int64(meta.CandidatesTokenCount)
	c.usage.CostEstimate = estimateCost(c.model, c.usage.InputTokens, c.usage.OutputTokens)
}

// Pricing per 1M tokens in USD. Unknown models use the default row.
var modelPricing = map[string]struct{ in, out float64 }{
	"gemini-2.5-flash": {0.30, 2.50},
	"gemini-2.5-pro":   {1.25, 10.00},
	"default":          {0.30, 2.50},
}

func estimateCost(model string, inputTokens, outputTokens int64) float64 {
	p, ok := modelPricing[model]
	if !ok {
		p = modelPricing["default"]
	}
	return float64(inputTokens)/1e6*p.in + float64(outputTokens)/1e6*p.out
}

// decodeVerdicts parses the model response into verdicts and enforces the
// response schema: a JSON array, one object per input, known categories.
func decodeVerdicts(raw string, want int) ([]Verdict, error) {
	clean := cleanModelJSON(raw)

	var rows []struct {
		Category    string `json:"category"`
		IsRecurring bool   `json:"is_recurring"`
	}
	if err := json.Unmarshal([]byte(clean), &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	if len(rows) != want {
		return nil, fmt.Errorf("%w: got %d verdicts for %d items", ErrSchemaInvalid, len(rows), want)
	}

	verdicts := make([]Verdict, len(rows))
	for i, row := range rows {
		verdicts[i] = Verdict{
			Category:        domain.ParseCategory(row.Category),
			IsRecurringHint: row.IsRecurring,
		}
	}
	return verdicts, nil
}

// cleanModelJSON strips markdown fences and surrounding junk if the model
// ignored the strict-JSON instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

func mapContextErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
}
