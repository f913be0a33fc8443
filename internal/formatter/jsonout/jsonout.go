// Package jsonout writes run summaries as one JSON document, for CI systems
// that post-process results.
package jsonout

import (
	"encoding/json"
	"io"
	"os"

	"github.com/AbhinavRai30/api-framework/internal/formatter"
	"github.com/AbhinavRai30/api-framework/internal/results"
)

type Formatter struct {
	writer io.Writer
}

func New() formatter.Formatter {
	return &Formatter{writer: os.Stdout}
}

func NewWithWriter(writer io.Writer) formatter.Formatter {
	return &Formatter{writer: writer}
}

type suiteDoc struct {
	results.SuiteResult
	Failed bool   `json:"failed"`
	Error  string `json:"error,omitempty"`
}

type summaryDoc struct {
	Suites         []suiteDoc `json:"suites"`
	ExecutedSuites int        `json:"executed_suites"`
	FailedSuites   int        `json:"failed_suites"`
	ExecutedTests  int        `json:"executed_tests"`
	PassedTests    int        `json:"passed_tests"`
	FailedTests    int        `json:"failed_tests"`
	ExecutedSteps  int        `json:"executed_steps"`
	DurationMS     int64      `json:"duration_ms"`
}

type aggregatedDoc struct {
	Iterations           []summaryDoc `json:"iterations"`
	IterationCount       int          `json:"iteration_count"`
	SuccessfulIterations int          `json:"successful_iterations"`
	TotalExecutedTests   int          `json:"total_executed_tests"`
	TotalFailedTests     int          `json:"total_failed_tests"`
	TotalDurationMS      int64        `json:"total_duration_ms"`
}

func toDoc(s *results.Summary) summaryDoc {
	doc := summaryDoc{
		Suites:         make([]suiteDoc, 0, len(s.SuiteResults)),
		ExecutedSuites: s.ExecutedSuites,
		FailedSuites:   s.FailedSuites,
		ExecutedTests:  s.ExecutedTests,
		PassedTests:    s.PassedTests,
		FailedTests:    s.FailedTests,
		ExecutedSteps:  s.ExecutedSteps,
		DurationMS:     s.TotalDuration.Milliseconds(),
	}
	for _, sr := range s.SuiteResults {
		sd := suiteDoc{SuiteResult: sr, Failed: sr.Failed()}
		if sr.Error != nil {
			sd.Error = sr.Error.Error()
		}
		doc.Suites = append(doc.Suites, sd)
	}
	return doc
}

// Format writes a single summary object, or an aggregated object with one
// entry per iteration when given several summaries.
func (f *Formatter) Format(summaries ...*results.Summary) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")

	switch len(summaries) {
	case 0:
		return nil
	case 1:
		return enc.Encode(toDoc(summaries[0]))
	}

	stats := results.CalculateAggregatedStats(summaries)
	doc := aggregatedDoc{
		Iterations:           make([]summaryDoc, 0, len(summaries)),
		IterationCount:       stats.IterationCount,
		SuccessfulIterations: stats.SuccessfulIterations,
		TotalExecutedTests:   stats.TotalExecutedTests,
		TotalFailedTests:     stats.TotalFailedTests,
		TotalDurationMS:      stats.TotalDuration.Milliseconds(),
	}
	for _, s := range summaries {
		doc.Iterations = append(doc.Iterations, toDoc(s))
	}
	return enc.Encode(doc)
}
