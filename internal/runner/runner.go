package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/AbhinavRai30/api-framework/internal/config"
	"github.com/AbhinavRai30/api-framework/internal/database"
	"github.com/AbhinavRai30/api-framework/internal/exit"
	"github.com/AbhinavRai30/api-framework/internal/formatter"
	"github.com/AbhinavRai30/api-framework/internal/formatter/jsonout"
	"github.com/AbhinavRai30/api-framework/internal/formatter/stdout"
	"github.com/AbhinavRai30/api-framework/internal/logging"
	"github.com/AbhinavRai30/api-framework/internal/ratelimit"
	"github.com/AbhinavRai30/api-framework/internal/results"
	"github.com/AbhinavRai30/api-framework/internal/sanitizer"
	"github.com/AbhinavRai30/api-framework/internal/schema"
)

// Runner executes keyword suites.
type Runner struct {
	client      *http.Client
	config      *config.Config
	rateLimiter *ratelimit.Limiter
	formatter   formatter.Formatter
	logger      *slog.Logger
	redactor    *sanitizer.Redactor
	schemas     *schema.Cache
	dialer      database.Dialer

	// out receives iteration banners, interrupt notices and debug dumps.
	// It is stderr when the report is JSON.
	out io.Writer
}

// New creates a new Runner with the provided configuration.
// If creation fails, returns nil runner and exit result.
func New(cfg *config.Config) (*Runner, *exit.Result) {
	client, err := cfg.HTTPClient()
	if err != nil {
		return nil, exit.Usagef("Error creating runner: %v\n", err)
	}

	runID := uuid.NewString()
	jsonOutput := cfg.Output == config.OutputJSON

	// the JSON report owns stdout, so diagnostics move to stderr
	var f formatter.Formatter = stdout.New()
	var out io.Writer = os.Stdout
	if jsonOutput {
		f = jsonout.New()
		out = os.Stderr
	}

	return &Runner{
		client:      client,
		config:      cfg,
		rateLimiter: ratelimit.New(cfg.RateLimit),
		formatter:   f,
		logger:      logging.New(os.Stderr, cfg.LogLevel, jsonOutput).With("run_id", runID),
		redactor:    sanitizer.New(runID, cfg.SecretValues()...),
		schemas:     schema.NewCache(),
		out:         out,
	}, nil
}

// NewDefault creates a new Runner with default configuration.
func NewDefault() *Runner {
	return &Runner{
		client:      &http.Client{Timeout: config.DefaultTimeout},
		config:      &config.Config{RequestTimeout: config.DefaultTimeout, Output: config.OutputText},
		rateLimiter: ratelimit.New(0), // No rate limiting by default
		formatter:   stdout.New(),
		logger:      logging.Discard(),
		schemas:     schema.NewCache(),
		out:         os.Stdout,
	}
}

// Run executes the suite files according to the configuration and returns
// the process exit code. A negative repeat runs until ctx is cancelled and
// reports every iteration as it finishes; otherwise the iterations are
// reported together at the end.
func (r *Runner) Run(ctx context.Context) int {
	infinite := r.config.Repeat < 0
	total := r.config.Repeat + 1

	var summaries []*results.Summary
	for i := 1; infinite || i <= total; i++ {
		if ctx.Err() != nil {
			r.interrupted(i-1, total, infinite)
			return exit.CodeFailure
		}

		summary, ok := r.iteration(ctx, i, total, infinite)
		if !ok {
			return exit.CodeFailure
		}
		if infinite {
			r.report(summary)
			continue
		}
		summaries = append(summaries, summary)
	}

	if !r.report(summaries...) || results.AnyFailed(summaries) {
		return exit.CodeFailure
	}
	return exit.CodeOK
}

func (r *Runner) iteration(ctx context.Context, i, total int, infinite bool) (*results.Summary, bool) {
	if r.config.Debug {
		switch {
		case infinite:
			fmt.Fprintf(r.out, "--- Iteration %d ---\n", i)
		case total > 1:
			fmt.Fprintf(r.out, "--- Iteration %d of %d ---\n", i, total)
		}
	}

	summary, err := r.runOnce(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "\nError in iteration %d: %v\n", i, err)
		return nil, false
	}
	return summary, true
}

func (r *Runner) interrupted(done, total int, infinite bool) {
	if infinite {
		fmt.Fprintf(r.out, "\nInterrupted after %d iterations\n", done)
		return
	}
	fmt.Fprintf(r.out, "\nInterrupted after %d of %d iterations\n", done, total)
}

func (r *Runner) report(summaries ...*results.Summary) bool {
	if err := r.formatter.Format(summaries...); err != nil {
		fmt.Fprintf(r.out, "Error formatting results: %v\n", err)
		return false
	}
	return true
}

// runOnce executes the suite files once and returns the results
func (r *Runner) runOnce(ctx context.Context) (*results.Summary, error) {
	return r.ExecuteFiles(ctx, r.config.TestFiles)
}

// ExecuteFiles runs the suites in order. Failing tests are recorded in the
// summary; the error is only set when ctx ends the run early.
func (r *Runner) ExecuteFiles(ctx context.Context, files []string) (*results.Summary, error) {
	s := results.NewSummary(len(files))

	overallStart := time.Now()

	for _, filename := range files {
		select {
		case <-ctx.Done():
			s.SetTotalDuration(time.Since(overallStart))
			return s, ctx.Err()
		default:
		}

		start := time.Now()
		builder := r.executeSuite(ctx, filename)
		s.Add(builder.WithDuration(time.Since(start)))
	}

	s.SetTotalDuration(time.Since(overallStart))
	return s, nil
}
