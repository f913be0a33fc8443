package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/database"
	"github.com/AbhinavRai30/api-framework/internal/keywords"
	"github.com/AbhinavRai30/api-framework/internal/results"
	"github.com/AbhinavRai30/api-framework/internal/session"
	"github.com/AbhinavRai30/api-framework/internal/suite"
	"github.com/AbhinavRai30/api-framework/internal/template"
	"github.com/AbhinavRai30/api-framework/internal/testdata"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

// Variables every suite starts with besides the configured ones.
const (
	varDatabaseURL = "database_url"
	varSuiteDir    = "suite_dir"
	varRow         = "row"
	varRowIndex    = "row_index"
)

// StepError is the first failing step of a step list.
type StepError struct {
	Keyword string
	Status  results.Status
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Keyword, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// classify maps a keyword error to a step status: verification failures
// fail, anything else is an error.
func classify(err error) results.Status {
	switch {
	case err == nil:
		return results.StatusPass
	case verify.IsFailure(err):
		return results.StatusFail
	default:
		return results.StatusError
	}
}

// execution holds the collaborators of one suite run.
type execution struct {
	lib    *keywords.Library
	env    keywords.Env
	suite  *suite.Suite
	logger *slog.Logger
}

func (r *Runner) newExecution(s *suite.Suite) *execution {
	logger := r.logger.With("suite", s.Name)

	var debugOut io.Writer
	if r.config.Debug {
		debugOut = r.out
	}

	env := keywords.Env{
		Session: session.New(session.Options{
			Client:   r.client,
			Limiter:  r.rateLimiter,
			Logger:   logger,
			Equality: r.config.Equality,
			DebugOut: debugOut,
			Redactor: r.redactor,
			Schemas:  r.schemas,
		}),
		DB:       database.New(database.Options{Dialer: r.dialer, Logger: logger}),
		Data:     testdata.NewStore(logger),
		Equality: r.config.Equality,
		Logger:   logger,
	}

	return &execution{
		lib:    keywords.Standard(env),
		env:    env,
		suite:  s,
		logger: logger,
	}
}

// executeSuite runs one suite file: setup, the selected tests in order and
// teardown. A failing setup fails every test; teardown always runs.
func (r *Runner) executeSuite(ctx context.Context, filename string) *results.SuiteResultBuilder {
	b := results.NewSuiteResultBuilder(filename)

	s, err := suite.Load(filename)
	if err != nil {
		r.logger.Error("failed to load suite", "file", filename, "error", err)
		return b.WithError(err)
	}
	b.WithName(s.Name)

	x := r.newExecution(s)
	defer func() {
		if err := x.env.DB.Disconnect(context.WithoutCancel(ctx)); err != nil {
			x.logger.Warn("disconnect failed", "error", err)
		}
	}()

	scope, err := r.suiteScope(s)
	if err != nil {
		return b.WithError(err)
	}

	setup, setupErr := x.runSteps(ctx, s.Setup, scope)
	b.WithSteps(len(setup))

	for _, t := range s.Tests {
		switch {
		case !r.selected(t):
			b.WithTest(results.TestResult{Name: t.Name, Status: results.StatusSkip})
		case setupErr != nil:
			b.WithTest(results.TestResult{
				Name:    t.Name,
				Status:  setupErr.Status,
				Message: "setup failed: " + setupErr.Error(),
			})
		default:
			for _, tr := range x.runTest(ctx, t, scope) {
				b.WithTest(tr)
			}
		}
	}

	teardown, teardownErr := x.runSteps(ctx, s.Teardown, scope)
	b.WithSteps(len(teardown))

	var errs []error
	if setupErr != nil {
		errs = append(errs, fmt.Errorf("setup: %w", setupErr))
	}
	if teardownErr != nil {
		errs = append(errs, fmt.Errorf("teardown: %w", teardownErr))
	}
	return b.WithError(errors.Join(errs...))
}

// suiteScope seeds the suite variables: configured variables and secrets,
// the database URL, the suite directory, then the suite's own variables in
// document order. Suite variables may reference earlier ones.
func (r *Runner) suiteScope(s *suite.Suite) (*template.Vars, error) {
	scope := template.NewVars(nil)

	vars := r.config.AllVariables()
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		scope.Set(name, value.Text(vars[name]))
	}
	if r.config.DatabaseURL != "" {
		scope.Set(varDatabaseURL, value.Text(r.config.DatabaseURL))
	}
	scope.Set(varSuiteDir, value.Text(s.Dir()))

	for _, m := range s.Variables.Members() {
		v, err := scope.Expand(m.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %q: %v", compare.ErrUsage, m.Key, err)
		}
		// configured values win over suite defaults
		if _, ok := vars[m.Key]; ok {
			continue
		}
		scope.Set(m.Key, v)
	}
	return scope, nil
}

// selected reports whether t runs under the configured tag filter.
func (r *Runner) selected(t suite.Test) bool {
	if len(r.config.IncludeTags) == 0 {
		return true
	}
	return slices.ContainsFunc(r.config.IncludeTags, t.HasTag)
}

// runTest runs t once, or once per spreadsheet row when it has a data
// source. Each run gets its own variable scope.
func (x *execution) runTest(ctx context.Context, t suite.Test, parent *template.Vars) []results.TestResult {
	if t.Data == nil {
		return []results.TestResult{x.runOnce(ctx, t.Name, t.Steps, template.NewVars(parent))}
	}

	start := time.Now()
	rows, err := x.readRows(t.Data, parent)
	if err == nil && len(rows) == 0 {
		err = verify.Failf("sheet %q has no data rows", t.Data.Sheet)
	}
	if err != nil {
		return []results.TestResult{{
			Name:     t.Name,
			Status:   classify(err),
			Message:  err.Error(),
			Duration: time.Since(start),
		}}
	}

	out := make([]results.TestResult, 0, len(rows))
	for i, row := range rows {
		scope := template.NewVars(parent)
		scope.Set(varRow, row)
		scope.Set(varRowIndex, value.Int(int64(i+1)))
		out = append(out, x.runOnce(ctx, fmt.Sprintf("%s [row %d]", t.Name, i+1), t.Steps, scope))
	}
	return out
}

// readRows loads the data source of a test. The file name may use suite
// variables and is resolved against the suite directory.
func (x *execution) readRows(src *suite.DataSource, scope *template.Vars) ([]value.Value, error) {
	file, err := scope.ExpandText(src.File)
	if err != nil {
		return nil, fmt.Errorf("%w: data file: %v", compare.ErrUsage, err)
	}
	return x.env.Data.ReadExcel(x.suite.ResolvePath(file), src.Sheet)
}

func (x *execution) runOnce(ctx context.Context, name string, steps []suite.Step, scope *template.Vars) results.TestResult {
	start := time.Now()
	stepResults, stepErr := x.runSteps(ctx, steps, scope)

	tr := results.TestResult{
		Name:     name,
		Status:   results.StatusPass,
		Duration: time.Since(start),
		Steps:    stepResults,
	}
	if stepErr != nil {
		tr.Status = stepErr.Status
		tr.Message = stepErr.Error()
	}

	x.logger.Info("test finished", "test", name, "status", tr.Status, "duration_ms", tr.Duration.Milliseconds())
	return tr
}

// runSteps runs steps in order and stops at the first failure.
func (x *execution) runSteps(ctx context.Context, steps []suite.Step, scope *template.Vars) ([]results.StepResult, *StepError) {
	out := make([]results.StepResult, 0, len(steps))
	for _, step := range steps {
		res, err := x.runStep(ctx, step, scope)
		out = append(out, res)
		if err != nil {
			return out, &StepError{Keyword: step.Keyword, Status: res.Status, Err: err}
		}
	}
	return out, nil
}

func (x *execution) runStep(ctx context.Context, step suite.Step, scope *template.Vars) (results.StepResult, error) {
	start := time.Now()

	ret, err := x.call(ctx, step, scope)
	if err == nil && step.Assign != "" {
		scope.Set(step.Assign, ret)
	}

	res := results.StepResult{
		Keyword:  step.Keyword,
		Status:   classify(err),
		Duration: time.Since(start),
	}
	if err != nil {
		res.Message = err.Error()
		x.logger.Debug("step failed", "keyword", step.Keyword, "status", res.Status, "error", err)
	}
	return res, err
}

func (x *execution) call(ctx context.Context, step suite.Step, scope *template.Vars) (value.Value, error) {
	raw := step.ArgValues()
	args := make([]value.Value, len(raw))
	for i, arg := range raw {
		v, err := scope.Expand(arg)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: argument %d: %v", compare.ErrUsage, i+1, err)
		}
		args[i] = v
	}
	return x.lib.Run(ctx, step.Keyword, args)
}
