package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theory/jsonpath"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/predicate"
	"github.com/AbhinavRai30/api-framework/internal/schema"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

func (s *Session) StatusCodeShouldBe(expected int) error {
	last, err := s.Last()
	if err != nil {
		return err
	}
	if last.StatusCode != expected {
		return verify.Failf("expected status code %d, but got %d", expected, last.StatusCode)
	}
	s.logger.Info("status code matches", "status", last.StatusCode)
	return nil
}

// BodyShouldContain looks for text in the raw body and in the rendered
// decoded body.
func (s *Session) BodyShouldContain(text string) error {
	last, err := s.Last()
	if err != nil {
		return err
	}
	if !strings.Contains(string(last.Raw), text) && !strings.Contains(last.Body.Render(), text) {
		return verify.Failf("expected text %q not found in response body", text)
	}
	s.logger.Info("response body contains text", "text", text)
	return nil
}

// JSONShouldEqual compares the structured body against expected and reports
// every mismatch. Keys the response has beyond expected are accepted.
func (s *Session) JSONShouldEqual(expected value.Value) error {
	body, err := s.structuredBody()
	if err != nil {
		return err
	}

	if expected.Kind() == value.KindText {
		parsed, err := value.ParseJSON([]byte(expected.Text()))
		if err != nil {
			return fmt.Errorf("%w: expected JSON: %v", compare.ErrUsage, err)
		}
		expected = parsed
	}

	if err := verify.Mismatches("response JSON", compare.Exact(body, expected, compare.WithEquality(s.equality))); err != nil {
		return err
	}
	s.logger.Info("response JSON matches expected JSON")
	return nil
}

// JSONShouldContainKey accepts a top-level key or a JSONPath starting with $.
func (s *Session) JSONShouldContainKey(key string) error {
	if _, err := s.JSONValue(key); err != nil {
		return err
	}
	s.logger.Info("response JSON contains key", "key", key)
	return nil
}

func (s *Session) JSONValueShouldBe(key string, expected value.Value) error {
	actual, err := s.JSONValue(key)
	if err != nil {
		return err
	}
	if ms := compare.Exact(actual, expected, compare.WithEquality(s.equality)); len(ms) > 0 {
		return verify.Failf("expected %q = %s, but got %s", key, expected, actual)
	}
	s.logger.Info("JSON value matches", "key", key, "value", expected.Render())
	return nil
}

// JSONValueShouldSatisfy applies a predicate operator such as greater_than
// or regex to the value at key.
func (s *Session) JSONValueShouldSatisfy(key, operator string, operand *value.Value) error {
	op, err := predicate.ParseOperator(operator)
	if err != nil {
		return fmt.Errorf("%w: %v", compare.ErrUsage, err)
	}

	expr := predicate.Expr{Op: op}
	if operand != nil {
		expr.Value = *operand
		expr.HasValue = true
	}
	if err := predicate.ValidateExpr(expr); err != nil {
		return fmt.Errorf("%w: %v", compare.ErrUsage, err)
	}

	actual, err := s.JSONValue(key)
	if err != nil && (op != predicate.OpExists || verify.IsUsage(err)) {
		return err
	}

	ok, err := s.predicates.Evaluate(expr, actual)
	if err != nil {
		return verify.Failf("%q %s: %v", key, op, err)
	}
	if !ok {
		if expr.HasValue {
			return verify.Failf("expected %q %s %s, got %s", key, op, expr.Value, actual)
		}
		return verify.Failf("expected %q %s, got %s", key, op, actual)
	}
	s.logger.Info("JSON value satisfies predicate", "key", key, "operator", string(op))
	return nil
}

func (s *Session) JSONShouldMatchSchema(source value.Value) error {
	body, err := s.structuredBody()
	if err != nil {
		return err
	}
	if err := s.schemas.Validate(source, body); err != nil {
		if errors.Is(err, schema.ErrInvalidSchema) {
			return fmt.Errorf("%w: %v", compare.ErrUsage, err)
		}
		return verify.Failf("%v", err)
	}
	s.logger.Info("response JSON matches schema")
	return nil
}

func (s *Session) HeaderShouldBe(name, expected string) error {
	last, err := s.Last()
	if err != nil {
		return err
	}
	values := last.Header.Values(name)
	if len(values) == 0 {
		return verify.Failf("header %q not found in response", name)
	}
	actual := strings.Join(values, ", ")
	if actual != expected {
		return verify.Failf("expected header %q = %q, but got %q", name, expected, actual)
	}
	s.logger.Info("response header matches", "name", name, "value", actual)
	return nil
}

// ResponseBody returns the decoded body of the last response.
func (s *Session) ResponseBody() (value.Value, error) {
	last, err := s.Last()
	if err != nil {
		return value.Value{}, err
	}
	return last.Body, nil
}

func (s *Session) StatusCode() (int, error) {
	last, err := s.Last()
	if err != nil {
		return 0, err
	}
	return last.StatusCode, nil
}

// ResponseTime returns the elapsed time of the last request in seconds.
func (s *Session) ResponseTime() (float64, error) {
	last, err := s.Last()
	if err != nil {
		return 0, err
	}
	return last.Elapsed.Seconds(), nil
}

// JSONValue returns the value under a top-level key, or the first match of a
// JSONPath expression when key starts with "$".
func (s *Session) JSONValue(key string) (value.Value, error) {
	body, err := s.structuredBody()
	if err != nil {
		return value.Value{}, err
	}

	if !strings.HasPrefix(key, "$") {
		if body.Kind() != value.KindMapping {
			return value.Value{}, verify.Failf("response JSON is not an object, cannot look up key %q", key)
		}
		v, ok := body.Get(key)
		if !ok {
			return value.Value{}, verify.Failf("key %q not found in response JSON", key)
		}
		return v, nil
	}

	path, err := jsonpath.Parse(key)
	if err != nil {
		return value.Value{}, fmt.Errorf("%w: invalid JSONPath %s: %v", compare.ErrUsage, key, err)
	}

	results := path.Select(body.ToAny())
	if len(results) == 0 {
		return value.Value{}, verify.Failf("path %s not found in response JSON", key)
	}

	v, err := value.FromAny(results[0])
	if err != nil {
		return value.Value{}, fmt.Errorf("JSONPath %s: %w", key, err)
	}
	return v, nil
}

func (s *Session) structuredBody() (value.Value, error) {
	last, err := s.Last()
	if err != nil {
		return value.Value{}, err
	}
	if k := last.Body.Kind(); k != value.KindMapping && k != value.KindSequence {
		return value.Value{}, verify.Failf("response body is not JSON")
	}
	return last.Body, nil
}
