// cmd/tools/recommend/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"vm-pathways/internal/common/config"
	"vm-pathways/internal/common/logger"
	"vm-pathways/internal/intake"
	"vm-pathways/internal/models"
	"vm-pathways/internal/recommendation"
)

// loadConfig is replaced in tests.
var loadConfig = func(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "recommend: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "Path to an intake record JSON file (default: stdin)")
	configPath := fs.String("config", "", "Path to a config file (default: configs/config.yaml)")
	stepCheck := fs.Bool("step-check", false, "Validate every wizard step before generating")
	promptOnly := fs.Bool("prompt-only", false, "Print the assistant prompt and exit without network I/O")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall deadline for the recommendation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	record, err := readIntake(*file, stdin)
	if err != nil {
		return err
	}

	if *stepCheck {
		if err := intake.ValidateAll(record); err != nil {
			var stepErr *intake.StepError
			if errors.As(err, &stepErr) {
				return fmt.Errorf("intake incomplete at step %d (%s): %s", stepErr.Step, stepErr.Step.Title(), stepErr.Message)
			}
			return err
		}
	}

	if *promptOnly {
		_, err := fmt.Fprintln(stdout, intake.FormatPrompt(record))
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Assistant.Validate(); err != nil {
		return err
	}

	log := logger.NewStructured(cfg.Logging.Level, "console")
	gen := recommendation.NewGeneratorFromConfig(cfg, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rec := gen.GenerateRecommendation(ctx, record)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func readIntake(path string, stdin io.Reader) (models.IntakeRecord, error) {
	var record models.IntakeRecord

	in := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return record, fmt.Errorf("open intake: %w", err)
		}
		defer f.Close()
		in = f
	}

	if err := json.NewDecoder(in).Decode(&record); err != nil {
		return record, fmt.Errorf("decode intake: %w", err)
	}
	return record, nil
}
