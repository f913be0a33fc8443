package testdata

import (
	"fmt"
	"strings"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

// ShouldContainExpectedKeys fails when a top-level key of expected is absent
// from actual. Values are not compared and extra actual keys are accepted.
func ShouldContainExpectedKeys(actual, expected value.Value) error {
	missing, err := compare.MissingKeys(actual, expected)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		quoted := make([]string, len(missing))
		for i, k := range missing {
			quoted[i] = fmt.Sprintf("'%s'", k)
		}
		return verify.Failf("missing keys in response: [%s]", strings.Join(quoted, ", "))
	}
	return nil
}

// ShouldMatchExactly compares actual against expected recursively and
// reports every mismatch. Text arguments are read as JSON when they parse.
func ShouldMatchExactly(actual, expected value.Value, eq compare.Equality) error {
	if actual.Kind() == value.KindText {
		actual = value.ParseExpected(actual.Text())
	}
	if expected.Kind() == value.KindText {
		expected = value.ParseExpected(expected.Text())
	}
	return verify.Mismatches("response", compare.Exact(actual, expected, compare.WithEquality(eq)))
}
