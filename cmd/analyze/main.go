// Command analyze runs the statement analysis pipeline on a local file and
// prints the detected recurring bills.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/joho/godotenv"

	"github.com/dvloznov/billscan/internal/analyze"
	"github.com/dvloznov/billscan/internal/classify"
	"github.com/dvloznov/billscan/internal/config"
	"github.com/dvloznov/billscan/internal/logger"
)

type Params struct {
	File       string `descr:"Path to the statement file (CSV, XLSX, or PDF)" positional:"true"`
	NoAI       bool   `descr:"Skip AI classification and use rules only"`
	JSON       bool   `descr:"Emit the full analysis as JSON instead of tables"`
	Thresholds string `descr:"Path to a YAML detector thresholds file"`
	Verbose    bool   `descr:"Enable debug logging"`
}

func main() {
	boa.NewCmdT[Params]("billscan").
		WithShort("Detect recurring bills in a bank statement").
		WithLong("Parses a bank statement, classifies every transaction, detects recurring bills, and prints a statement report. AI classification is used when GEMINI_API_KEY is set; otherwise a rule-based classifier takes over.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if params.Thresholds != "" {
		cfg.Detect, err = config.LoadThresholds(params.Thresholds)
		if err != nil {
			return err
		}
	}

	level := "warn"
	if params.Verbose {
		level = "debug"
	}
	log := logger.New(logger.Options{Service: "analyze", Level: level})

	doc, err := os.ReadFile(params.File)
	if err != nil {
		return fmt.Errorf("reading %s: %w", params.File, err)
	}

	var primary classify.BatchClassifier
	if cfg.GeminiAPIKey != "" && !params.NoAI {
		primary = classify.NewGeminiClassifier(cfg.GeminiModel, cfg.ClassifyBatchSize, cfg.ClassifyConcurrency)
	}
	controller := classify.NewController(primary, cfg.ClassifyTimeout, log)
	svc := analyze.NewService(controller, cfg.Detect, cfg.Currency, log)

	result, err := svc.Analyze(context.Background(), doc, "")
	if err != nil {
		return err
	}

	if params.JSON {
		return printJSON(os.Stdout, result)
	}
	printReport(os.Stdout, result)
	return nil
}
