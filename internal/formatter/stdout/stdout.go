package stdout

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/AbhinavRai30/api-framework/internal/formatter"
	"github.com/AbhinavRai30/api-framework/internal/results"
)

const (
	ruler     = "--------------------------------------------------------------------------------"
	heavyRule = "================================================================================"
)

// Formatter implements stdout-based output formatting.
type Formatter struct {
	writer io.Writer
	colors map[results.Status]*color.Color
}

// New creates a new stdout formatter that outputs to stdout. Colours follow
// the terminal detection of the color package.
func New() formatter.Formatter {
	return newFormatter(os.Stdout, !color.NoColor)
}

// NewWithWriter creates a new stdout formatter with a custom writer and no
// colours. This is useful for testing or redirecting output to files.
func NewWithWriter(writer io.Writer) formatter.Formatter {
	return newFormatter(writer, false)
}

func newFormatter(writer io.Writer, colored bool) *Formatter {
	colors := map[results.Status]*color.Color{
		results.StatusPass:  color.New(color.FgGreen, color.Bold),
		results.StatusFail:  color.New(color.FgRed, color.Bold),
		results.StatusError: color.New(color.FgMagenta, color.Bold),
		results.StatusSkip:  color.New(color.FgYellow),
	}
	for _, c := range colors {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &Formatter{writer: writer, colors: colors}
}

func (f *Formatter) status(s results.Status) string {
	label := fmt.Sprintf("%-5s", s)
	if c, ok := f.colors[s]; ok {
		return c.Sprint(label)
	}
	return label
}

// Format automatically determines whether to format as single or aggregated results
// based on the number of summaries provided.
func (f *Formatter) Format(summaries ...*results.Summary) error {
	if len(summaries) > 1 {
		return f.formatAggregated(summaries)
	} else if len(summaries) == 1 {
		return f.formatSingle(summaries[0])
	}
	// If no summaries, do nothing
	return nil
}

// formatSingle formats a single iteration summary in stdout format.
func (f *Formatter) formatSingle(s *results.Summary) error {
	for _, suite := range s.SuiteResults {
		if err := f.formatSuite(suite); err != nil {
			return err
		}
	}

	lines := []string{
		ruler,
		fmt.Sprintf("Executed suites: %d (%d failed)", s.ExecutedSuites, s.FailedSuites),
		fmt.Sprintf("Executed tests:  %d", s.ExecutedTests),
		fmt.Sprintf("Passed tests:    %d (%.1f%%)", s.PassedTests, s.PassPercentage()),
		fmt.Sprintf("Failed tests:    %d (%.1f%%)", s.FailedTests, s.FailurePercentage()),
		fmt.Sprintf("Executed steps:  %d", s.ExecutedSteps),
		fmt.Sprintf("Duration:        %d ms", s.TotalDuration.Milliseconds()),
	}
	return f.println(lines...)
}

func (f *Formatter) formatSuite(suite results.SuiteResult) error {
	header := suite.Name
	if suite.Name != suite.Filename {
		header = fmt.Sprintf("%s (%s)", suite.Name, suite.Filename)
	}
	if err := f.println(header); err != nil {
		return err
	}

	if suite.Error != nil {
		if _, err := fmt.Fprintf(f.writer, "  %s %s\n", f.status(results.StatusError), indent(suite.Error.Error())); err != nil {
			return err
		}
	}

	for _, t := range suite.Tests {
		if _, err := fmt.Fprintf(f.writer, "  %s %s (%d ms)\n", f.status(t.Status), t.Name, t.Duration.Milliseconds()); err != nil {
			return err
		}
		if t.Message != "" && !t.Passed() {
			if _, err := fmt.Fprintf(f.writer, "        %s\n", indent(t.Message)); err != nil {
				return err
			}
		}
	}
	return nil
}

// indent aligns continuation lines of multi-line messages.
func indent(msg string) string {
	return strings.ReplaceAll(strings.TrimRight(msg, "\n"), "\n", "\n        ")
}

// formatAggregated formats results from multiple iterations in stdout format.
func (f *Formatter) formatAggregated(allResults []*results.Summary) error {
	if len(allResults) == 0 {
		return nil
	}

	if len(allResults) == 1 {
		return f.formatSingle(allResults[0])
	}

	stats := results.CalculateAggregatedStats(allResults)

	if err := f.printIterationSummary(allResults); err != nil {
		return err
	}

	return f.printAggregatedSummary(stats)
}

// printIterationSummary prints per-iteration results.
func (f *Formatter) printIterationSummary(allResults []*results.Summary) error {
	if err := f.println(heavyRule, "ITERATION RESULTS:", heavyRule); err != nil {
		return err
	}

	for i, summary := range allResults {
		status := results.StatusPass
		if summary.Failed() {
			status = results.StatusFail
		}

		_, err := fmt.Fprintf(f.writer, "Iteration %d: %s (%d suites, %d tests, %d failed, %d ms)\n",
			i+1, f.status(status), summary.ExecutedSuites, summary.ExecutedTests, summary.FailedTests,
			summary.TotalDuration.Milliseconds())
		if err != nil {
			return err
		}
	}

	return nil
}

// printAggregatedSummary prints overall statistics and averages.
func (f *Formatter) printAggregatedSummary(stats results.AggregatedStats) error {
	successRate := float64(stats.SuccessfulIterations) / float64(stats.IterationCount) * 100
	avgDuration := stats.TotalDuration / time.Duration(stats.IterationCount)
	avgTests := float64(stats.TotalExecutedTests) / float64(stats.IterationCount)

	return f.println(
		heavyRule,
		"AGGREGATED RESULTS:",
		heavyRule,
		fmt.Sprintf("Total iterations:      %d", stats.IterationCount),
		fmt.Sprintf("Successful iterations: %d (%.1f%%)", stats.SuccessfulIterations, successRate),
		fmt.Sprintf("Failed iterations:     %d (%.1f%%)", stats.IterationCount-stats.SuccessfulIterations, 100-successRate),
		fmt.Sprintf("Total executed suites: %d", stats.TotalExecutedSuites),
		fmt.Sprintf("Total executed tests:  %d", stats.TotalExecutedTests),
		fmt.Sprintf("Total passed tests:    %d", stats.TotalPassedTests),
		fmt.Sprintf("Total failed tests:    %d", stats.TotalFailedTests),
		fmt.Sprintf("Total executed steps:  %d", stats.TotalExecutedSteps),
		fmt.Sprintf("Total duration:        %d ms", stats.TotalDuration.Milliseconds()),
		ruler,
		fmt.Sprintf("Avg tests per iteration:    %.1f", avgTests),
		fmt.Sprintf("Avg duration per iteration: %d ms", avgDuration.Milliseconds()),
	)
}

func (f *Formatter) println(lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(f.writer, line); err != nil {
			return err
		}
	}
	return nil
}
