package results

import (
	"time"
)

// Status is the outcome of a step or a test.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
	StatusSkip  Status = "SKIP"
)

type StepResult struct {
	Keyword  string        `json:"keyword"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

type TestResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Steps    []StepResult  `json:"steps,omitempty"`
}

// Passed reports whether the test did not fail or error.
func (t TestResult) Passed() bool {
	return t.Status == StatusPass || t.Status == StatusSkip
}

type SuiteResult struct {
	Filename  string        `json:"filename"`
	Name      string        `json:"name"`
	Tests     []TestResult  `json:"tests"`
	StepCount int           `json:"steps"`
	Duration  time.Duration `json:"duration_ns"`
	// Error is set when the suite could not run at all or its setup or
	// teardown failed.
	Error error `json:"-"`
}

// Failed reports whether the suite errored or any of its tests failed.
func (s SuiteResult) Failed() bool {
	if s.Error != nil {
		return true
	}
	for _, t := range s.Tests {
		if !t.Passed() {
			return true
		}
	}
	return false
}

type SuiteResultBuilder struct {
	filename  string
	name      string
	tests     []TestResult
	stepCount int
	duration  time.Duration
	err       error
}

func NewSuiteResultBuilder(filename string) *SuiteResultBuilder {
	return &SuiteResultBuilder{
		filename: filename,
	}
}

func (b *SuiteResultBuilder) WithName(name string) *SuiteResultBuilder {
	b.name = name
	return b
}

func (b *SuiteResultBuilder) WithTest(t TestResult) *SuiteResultBuilder {
	b.tests = append(b.tests, t)
	b.stepCount += len(t.Steps)
	return b
}

// WithSteps counts steps that belong to no test, such as setup and teardown.
func (b *SuiteResultBuilder) WithSteps(count int) *SuiteResultBuilder {
	b.stepCount += count
	return b
}

func (b *SuiteResultBuilder) WithDuration(duration time.Duration) *SuiteResultBuilder {
	b.duration = duration
	return b
}

func (b *SuiteResultBuilder) WithError(err error) *SuiteResultBuilder {
	b.err = err
	return b
}

func (b *SuiteResultBuilder) Build() SuiteResult {
	name := b.name
	if name == "" {
		name = b.filename
	}
	return SuiteResult{
		Filename:  b.filename,
		Name:      name,
		Tests:     b.tests,
		StepCount: b.stepCount,
		Duration:  b.duration,
		Error:     b.err,
	}
}

type Summary struct {
	SuiteResults   []SuiteResult `json:"suites"`
	ExecutedSuites int           `json:"executed_suites"`
	FailedSuites   int           `json:"failed_suites"`
	ExecutedTests  int           `json:"executed_tests"`
	PassedTests    int           `json:"passed_tests"`
	FailedTests    int           `json:"failed_tests"`
	ExecutedSteps  int           `json:"executed_steps"`
	TotalDuration  time.Duration `json:"duration_ns"`
}

func NewSummary(expectedSuites int) *Summary {
	return &Summary{
		SuiteResults: make([]SuiteResult, 0, expectedSuites),
	}
}

func (s *Summary) Add(builder *SuiteResultBuilder) {
	result := builder.Build()

	s.SuiteResults = append(s.SuiteResults, result)
	s.ExecutedSuites++
	s.ExecutedSteps += result.StepCount

	for _, t := range result.Tests {
		if t.Status == StatusSkip {
			continue
		}
		s.ExecutedTests++
		if t.Passed() {
			s.PassedTests++
		} else {
			s.FailedTests++
		}
	}

	if result.Failed() {
		s.FailedSuites++
	}
}

func (s *Summary) SetTotalDuration(duration time.Duration) {
	s.TotalDuration = duration
}

// Failed reports whether any suite failed.
func (s *Summary) Failed() bool {
	return s.FailedSuites > 0
}

func (s *Summary) PassPercentage() float64 {
	if s.ExecutedTests == 0 {
		return 0
	}
	return (float64(s.PassedTests) / float64(s.ExecutedTests)) * 100
}

func (s *Summary) FailurePercentage() float64 {
	if s.ExecutedTests == 0 {
		return 0
	}
	return (float64(s.FailedTests) / float64(s.ExecutedTests)) * 100
}

type AggregatedStats struct {
	TotalExecutedSuites  int
	TotalExecutedTests   int
	TotalPassedTests     int
	TotalFailedTests     int
	TotalExecutedSteps   int
	TotalDuration        time.Duration
	SuccessfulIterations int
	IterationCount       int
}

func CalculateAggregatedStats(allResults []*Summary) AggregatedStats {
	var stats AggregatedStats
	stats.IterationCount = len(allResults)

	for _, results := range allResults {
		stats.TotalExecutedSuites += results.ExecutedSuites
		stats.TotalExecutedTests += results.ExecutedTests
		stats.TotalPassedTests += results.PassedTests
		stats.TotalFailedTests += results.FailedTests
		stats.TotalExecutedSteps += results.ExecutedSteps
		stats.TotalDuration += results.TotalDuration

		if !results.Failed() {
			stats.SuccessfulIterations++
		}
	}

	return stats
}

// AnyFailed reports whether any of the summaries failed.
func AnyFailed(summaries []*Summary) bool {
	for _, s := range summaries {
		if s.Failed() {
			return true
		}
	}
	return false
}
