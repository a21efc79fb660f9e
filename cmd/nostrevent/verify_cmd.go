package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/nostrevent/pkg/config"
	"github.com/Mindburn-Labs/nostrevent/pkg/observability"
	"github.com/Mindburn-Labs/nostrevent/pkg/verifier"
)

// runVerifyCmd implements `nostrevent verify`.
//
// Reads newline-delimited event JSON and checks every id and signature.
//
// Exit codes:
//
//	0 = all events verified
//	1 = at least one event rejected
//	2 = runtime error
func runVerifyCmd(args []string, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		in          string
		jsonOutput  bool
		yamlOutput  bool
		concurrency int
	)
	cmd.StringVar(&in, "in", "", "NDJSON events file (default stdin)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output report as JSON")
	cmd.BoolVar(&yamlOutput, "yaml", false, "Output report as YAML")
	cmd.IntVar(&concurrency, "concurrency", cfg.VerifyConcurrency, "Events verified in parallel (0 = GOMAXPROCS)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if jsonOutput && yamlOutput {
		_, _ = fmt.Fprintln(stderr, "Error: --json and --yaml are mutually exclusive")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := observability.New(ctx, cfg.Observability(version))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	r, err := openInput(in)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot open events: %v\n", err)
		return 2
	}
	defer func() { _ = r.Close() }()

	report, err := verifier.VerifyStream(ctx, r,
		verifier.WithConcurrency(concurrency),
		verifier.WithProvider(provider),
	)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: verification failed: %v\n", err)
		return 2
	}
	logger.Info("verification complete",
		"run_id", report.RunID,
		"events", report.EventCount,
		"rejected", report.Rejected,
	)

	switch {
	case jsonOutput:
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	case yamlOutput:
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot encode report: %v\n", err)
			return 2
		}
		_ = enc.Close()
	default:
		if report.Verified {
			_, _ = fmt.Fprintf(stdout, "PASSED: %s\n", report.Summary)
		} else {
			_, _ = fmt.Fprintf(stdout, "FAILED: %s\n", report.Summary)
			for _, res := range report.Events {
				for _, c := range res.Checks {
					if !c.Pass {
						_, _ = fmt.Fprintf(stdout, "  - event %d (line %d) %s: %s\n", res.Index, res.Line, c.Name, c.Reason)
					}
				}
			}
		}
	}

	if !report.Verified {
		return 1
	}
	return 0
}
