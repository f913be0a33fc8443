package predicate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/AbhinavRai30/api-framework/internal/value"
)

var (
	ErrInvalidInput = errors.New("invalid predicate input")
	ErrUnsupported  = errors.New("unsupported predicate operation")
)

type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpRegex              Operator = "regex"
	OpExists             Operator = "exists"
	OpLength             Operator = "length"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpNotContains        Operator = "not_contains"
	OpIn                 Operator = "in"
	OpTypeIs             Operator = "type_is"
)

// Expr is an operator with its optional operand.
type Expr struct {
	Op       Operator
	Value    value.Value
	HasValue bool
}

var supportedOperatorSet = map[Operator]struct{}{
	OpEquals:             {},
	OpNotEquals:          {},
	OpContains:           {},
	OpRegex:              {},
	OpExists:             {},
	OpLength:             {},
	OpGreaterThan:        {},
	OpLessThan:           {},
	OpGreaterThanOrEqual: {},
	OpLessThanOrEqual:    {},
	OpStartsWith:         {},
	OpEndsWith:           {},
	OpNotContains:        {},
	OpIn:                 {},
	OpTypeIs:             {},
}

var supportedTypeValues = []string{
	"array",
	"object",
	"string",
	"number",
	"boolean",
	"null",
}

var typeNames = map[value.Kind]string{
	value.KindNull:     "null",
	value.KindBool:     "boolean",
	value.KindNumber:   "number",
	value.KindText:     "string",
	value.KindMapping:  "object",
	value.KindSequence: "array",
}

type regexCompiler interface {
	Compile(pattern string) (*regexp.Regexp, error)
}

type cachedRegexCompiler struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

func newCachedRegexCompiler() *cachedRegexCompiler {
	return &cachedRegexCompiler{
		patterns: make(map[string]*regexp.Regexp),
	}
}

func (c *cachedRegexCompiler) Compile(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	if compiled, ok := c.patterns[pattern]; ok {
		c.mu.RUnlock()
		return compiled, nil
	}
	c.mu.RUnlock()

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid regex %q: %v", ErrInvalidInput, pattern, err)
	}

	c.mu.Lock()
	c.patterns[pattern] = compiled
	c.mu.Unlock()

	return compiled, nil
}

type operationFunc func(actual, expected value.Value) (bool, error)

// Evaluator applies operators to values. It is safe for concurrent use.
type Evaluator struct {
	regexCompiler regexCompiler
	operations    map[Operator]operationFunc
}

func NewEvaluator() *Evaluator {
	return newEvaluator(newCachedRegexCompiler())
}

func newEvaluator(compiler regexCompiler) *Evaluator {
	e := &Evaluator{
		regexCompiler: compiler,
	}

	e.operations = map[Operator]operationFunc{
		OpEquals: func(actual, expected value.Value) (bool, error) {
			return value.Equal(actual, expected), nil
		},
		OpNotEquals: func(actual, expected value.Value) (bool, error) {
			return !value.Equal(actual, expected), nil
		},
		OpContains: evaluateContains,
		OpRegex:    e.evaluateRegex,
		OpExists: func(actual, _ value.Value) (bool, error) {
			return evaluateExists(actual), nil
		},
		OpLength: evaluateLength,
		OpGreaterThan: func(a, b value.Value) (bool, error) {
			return evaluateNumericComparison(OpGreaterThan, a, b, func(x, y float64) bool { return x > y })
		},
		OpLessThan: func(a, b value.Value) (bool, error) {
			return evaluateNumericComparison(OpLessThan, a, b, func(x, y float64) bool { return x < y })
		},
		OpGreaterThanOrEqual: func(a, b value.Value) (bool, error) {
			return evaluateNumericComparison(OpGreaterThanOrEqual, a, b, func(x, y float64) bool { return x >= y })
		},
		OpLessThanOrEqual: func(a, b value.Value) (bool, error) {
			return evaluateNumericComparison(OpLessThanOrEqual, a, b, func(x, y float64) bool { return x <= y })
		},
		OpStartsWith: func(a, b value.Value) (bool, error) {
			return evaluateStringComparison(OpStartsWith, a, b, strings.HasPrefix)
		},
		OpEndsWith: func(a, b value.Value) (bool, error) {
			return evaluateStringComparison(OpEndsWith, a, b, strings.HasSuffix)
		},
		OpNotContains: func(a, b value.Value) (bool, error) {
			ok, err := evaluateContains(a, b)
			return !ok, err
		},
		OpIn:     evaluateIn,
		OpTypeIs: evaluateTypeIs,
	}

	return e
}

func isSupportedOperator(op Operator) bool {
	_, ok := supportedOperatorSet[op]
	return ok
}

func ParseOperator(input string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(input)))
	if isSupportedOperator(op) {
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, input)
}

func ValidateExpr(expr Expr) error {
	if !isSupportedOperator(expr.Op) {
		return fmt.Errorf("%w: %q", ErrUnsupported, expr.Op)
	}

	if expr.Op == OpExists {
		if expr.HasValue {
			return fmt.Errorf("%w: operation %q does not accept a value", ErrInvalidInput, expr.Op)
		}
		return nil
	}

	if !expr.HasValue {
		return fmt.Errorf("%w: operation %q requires a value", ErrInvalidInput, expr.Op)
	}

	if expr.Op == OpTypeIs {
		if _, err := parseTypeValue(expr.Value); err != nil {
			return err
		}
	}

	return nil
}

func (e *Evaluator) Evaluate(expr Expr, actual value.Value) (bool, error) {
	if err := ValidateExpr(expr); err != nil {
		return false, err
	}

	opFunc, ok := e.operations[expr.Op]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnsupported, expr.Op)
	}

	return opFunc(actual, expr.Value)
}

func EvaluateExpr(expr Expr, actual value.Value) (bool, error) {
	return NewEvaluator().Evaluate(expr, actual)
}

// evaluateContains matches substrings of text and elements of sequences.
func evaluateContains(actual, expected value.Value) (bool, error) {
	if actual.Kind() == value.KindSequence {
		for _, item := range actual.Items() {
			if value.Equal(item, expected) {
				return true, nil
			}
		}
		return false, nil
	}
	return evaluateStringComparison(OpContains, actual, expected, strings.Contains)
}

func (e *Evaluator) evaluateRegex(actual, expected value.Value) (bool, error) {
	actualString, pattern, err := requireStringPair(OpRegex, actual, expected)
	if err != nil {
		return false, err
	}

	regex, err := e.regexCompiler.Compile(pattern)
	if err != nil {
		return false, err
	}

	return regex.MatchString(actualString), nil
}

func evaluateExists(actual value.Value) bool {
	switch actual.Kind() {
	case value.KindNull:
		return false
	case value.KindText, value.KindMapping, value.KindSequence:
		return actual.Len() > 0
	default:
		return true
	}
}

func evaluateLength(actual, expected value.Value) (bool, error) {
	expectedLength, ok := expected.Int64()
	if !ok || strings.ContainsAny(string(expected.Number()), ".eE") {
		return false, fmt.Errorf("%w: %q requires integer expected value, got %s", ErrInvalidInput, OpLength, expected)
	}

	switch actual.Kind() {
	case value.KindText, value.KindMapping, value.KindSequence:
		return int64(actual.Len()) == expectedLength, nil
	default:
		return false, fmt.Errorf("%w: %q requires string/array/object actual value, got %s", ErrInvalidInput, OpLength, actual.Kind())
	}
}

func evaluateNumericComparison(op Operator, actual, expected value.Value, compare func(float64, float64) bool) (bool, error) {
	actualNumber, actualIsNumber := actual.Float64()
	expectedNumber, expectedIsNumber := expected.Float64()
	if !actualIsNumber || !expectedIsNumber {
		return false, fmt.Errorf("%w: %q requires numeric values, got %s and %s", ErrInvalidInput, op, actual.Kind(), expected.Kind())
	}

	return compare(actualNumber, expectedNumber), nil
}

func evaluateIn(actual, expected value.Value) (bool, error) {
	if expected.Kind() != value.KindSequence {
		return false, fmt.Errorf("%w: %q requires array expected value, got %s", ErrInvalidInput, OpIn, expected.Kind())
	}

	for _, item := range expected.Items() {
		if value.Equal(actual, item) {
			return true, nil
		}
	}

	return false, nil
}

func evaluateTypeIs(actual, expected value.Value) (bool, error) {
	expectedType, err := parseTypeValue(expected)
	if err != nil {
		return false, err
	}

	return typeNames[actual.Kind()] == expectedType, nil
}

func parseTypeValue(v value.Value) (string, error) {
	if v.Kind() != value.KindText {
		return "", fmt.Errorf("%w: %q requires string expected value, got %s", ErrInvalidInput, OpTypeIs, v.Kind())
	}

	normalized := strings.ToLower(strings.TrimSpace(v.Text()))
	for _, name := range supportedTypeValues {
		if name == normalized {
			return normalized, nil
		}
	}

	return "", fmt.Errorf("%w: %q requires one of %v, got %q", ErrInvalidInput, OpTypeIs, supportedTypeValues, v.Text())
}

func evaluateStringComparison(op Operator, actual, expected value.Value, compare func(actual string, expected string) bool) (bool, error) {
	actualString, expectedString, err := requireStringPair(op, actual, expected)
	if err != nil {
		return false, err
	}

	return compare(actualString, expectedString), nil
}

func requireStringPair(op Operator, actual, expected value.Value) (string, string, error) {
	if actual.Kind() != value.KindText {
		return "", "", fmt.Errorf("%w: %q requires string actual value, got %s", ErrInvalidInput, op, actual.Kind())
	}
	if expected.Kind() != value.KindText {
		return "", "", fmt.Errorf("%w: %q requires string expected value, got %s", ErrInvalidInput, op, expected.Kind())
	}

	return actual.Text(), expected.Text(), nil
}
