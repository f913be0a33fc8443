// Package verify defines how keyword assertions report failure.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AbhinavRai30/api-framework/internal/compare"
)

// ErrFailed marks an assertion that did not hold. Steps failing with it are
// reported as FAIL; any other error is reported as ERROR.
var ErrFailed = errors.New("verification failed")

// Failf returns an ErrFailed-wrapped error with a formatted message.
func Failf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFailed, fmt.Sprintf(format, args...))
}

// MismatchError carries every mismatch found by a structural comparison.
type MismatchError struct {
	Subject    string
	Mismatches []compare.Mismatch
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d mismatch(es)", e.Subject, len(e.Mismatches))
	for _, m := range e.Mismatches {
		b.WriteString("\n  - ")
		b.WriteString(m.String())
	}
	return b.String()
}

func (e *MismatchError) Unwrap() error {
	return ErrFailed
}

// Mismatches returns nil when ms is empty, otherwise a *MismatchError.
func Mismatches(subject string, ms []compare.Mismatch) error {
	if len(ms) == 0 {
		return nil
	}
	return &MismatchError{Subject: subject, Mismatches: ms}
}

// IsUsage reports whether err comes from a malformed call rather than a
// failed check.
func IsUsage(err error) bool {
	return errors.Is(err, compare.ErrUsage)
}

// IsFailure reports whether err is an assertion failure.
func IsFailure(err error) bool {
	return errors.Is(err, ErrFailed)
}
