// Package compare checks an actual structured value against an expected one.
//
// Mismatches are returned as data; only malformed calls produce errors.
package compare

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AbhinavRai30/api-framework/internal/value"
)

// ErrUsage marks a call the comparator cannot process, such as a non-mapping
// handed to MissingKeys. It is fatal to the calling step.
var ErrUsage = errors.New("usage error")

// MismatchKind classifies a Mismatch.
type MismatchKind uint8

const (
	TypeMismatch MismatchKind = iota + 1
	MissingKey
	LengthMismatch
	ValueMismatch
)

func (k MismatchKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case MissingKey:
		return "missing key"
	case LengthMismatch:
		return "length mismatch"
	case ValueMismatch:
		return "value mismatch"
	default:
		return "unknown mismatch"
	}
}

// Mismatch is one place where actual deviates from expected. Actual is Null
// for MissingKey.
type Mismatch struct {
	Path     string
	Kind     MismatchKind
	Expected value.Value
	Actual   value.Value
}

func (m Mismatch) String() string {
	where := m.Path
	if where == "" {
		where = "(root)"
	}

	switch m.Kind {
	case TypeMismatch:
		return fmt.Sprintf("%s at %s: expected %s, got %s", m.Kind, where, m.Expected.Kind(), m.Actual.Kind())
	case MissingKey:
		return fmt.Sprintf("%s at %s", m.Kind, where)
	case LengthMismatch:
		return fmt.Sprintf("%s at %s: expected %d items, got %d", m.Kind, where, m.Expected.Len(), m.Actual.Len())
	default:
		return fmt.Sprintf("%s at %s: expected %s, got %s", m.Kind, where, m.Expected, m.Actual)
	}
}

// Equality selects how scalars are compared.
type Equality uint8

const (
	// Strict requires the same kind and value. Numbers compare numerically.
	Strict Equality = iota
	// Lenient compares scalars by their text form, the way spreadsheet
	// literals were historically matched: 5 equals "5", true equals "True".
	Lenient
)

func (e Equality) String() string {
	if e == Lenient {
		return "lenient"
	}
	return "strict"
}

// ParseEquality accepts "strict" or "lenient".
func ParseEquality(s string) (Equality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "lenient", "text":
		return Lenient, nil
	default:
		return Strict, fmt.Errorf("%w: unknown equality mode %q", ErrUsage, s)
	}
}

// Option configures Exact.
type Option func(*options)

type options struct {
	equality Equality
}

func WithEquality(e Equality) Option {
	return func(o *options) {
		o.equality = e
	}
}

// Exact walks actual and expected in lock-step and returns every mismatch in
// expected's order. An empty result means actual conforms. Keys present only
// in actual are ignored at every depth.
func Exact(actual, expected value.Value, opts ...Option) []Mismatch {
	o := options{equality: Strict}
	for _, opt := range opts {
		opt(&o)
	}

	w := walker{equality: o.equality}
	w.walk("", actual, expected)
	return w.mismatches
}

type walker struct {
	equality   Equality
	mismatches []Mismatch
}

func (w *walker) walk(path string, actual, expected value.Value) {
	if actual.Kind() != expected.Kind() {
		if w.equality == Lenient && isScalar(actual) && isScalar(expected) {
			if !ScalarsEqual(actual, expected, Lenient) {
				w.add(path, ValueMismatch, expected, actual)
			}
			return
		}
		w.add(path, TypeMismatch, expected, actual)
		return
	}

	switch expected.Kind() {
	case value.KindMapping:
		for _, m := range expected.Members() {
			childPath := joinKey(path, m.Key)
			got, ok := actual.Get(m.Key)
			if !ok {
				w.add(childPath, MissingKey, m.Value, value.Null())
				continue
			}
			w.walk(childPath, got, m.Value)
		}
	case value.KindSequence:
		if actual.Len() != expected.Len() {
			w.add(path, LengthMismatch, expected, actual)
			return
		}
		for i, item := range expected.Items() {
			w.walk(path+"["+strconv.Itoa(i)+"]", actual.Index(i), item)
		}
	default:
		if !ScalarsEqual(actual, expected, w.equality) {
			w.add(path, ValueMismatch, expected, actual)
		}
	}
}

func (w *walker) add(path string, kind MismatchKind, expected, actual value.Value) {
	w.mismatches = append(w.mismatches, Mismatch{
		Path:     path,
		Kind:     kind,
		Expected: expected,
		Actual:   actual,
	})
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func isScalar(v value.Value) bool {
	k := v.Kind()
	return k != value.KindMapping && k != value.KindSequence
}

// ScalarsEqual compares two scalars under the given equality.
func ScalarsEqual(actual, expected value.Value, eq Equality) bool {
	if value.Equal(actual, expected) {
		return true
	}
	if eq != Lenient {
		return false
	}

	a, e := actual.Render(), expected.Render()
	if a == e {
		return true
	}
	if af, err := strconv.ParseFloat(strings.TrimSpace(a), 64); err == nil {
		if ef, err := strconv.ParseFloat(strings.TrimSpace(e), 64); err == nil {
			return af == ef
		}
	}
	if isBoolText(a) && isBoolText(e) {
		return strings.EqualFold(a, e)
	}
	return false
}

func isBoolText(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

// MissingKeys is the shallow, value-blind presence check: it returns every
// top-level key of expected absent from actual, in expected's order. Text
// inputs are parsed as JSON first. Anything that is not a mapping is a usage
// error.
func MissingKeys(actual, expected value.Value) ([]string, error) {
	a, err := asMapping("actual", actual)
	if err != nil {
		return nil, err
	}
	e, err := asMapping("expected", expected)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, key := range e.Keys() {
		if !a.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

func asMapping(role string, v value.Value) (value.Value, error) {
	if v.Kind() == value.KindText {
		parsed, err := value.ParseJSON([]byte(v.Text()))
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: %s value is text that is not JSON: %v", ErrUsage, role, err)
		}
		v = parsed
	}
	if v.Kind() != value.KindMapping {
		return value.Value{}, fmt.Errorf("%w: %s value must be a mapping, got %s", ErrUsage, role, v.Kind())
	}
	return v, nil
}

// Format renders mismatches one per line.
func Format(mismatches []Mismatch) string {
	lines := make([]string, len(mismatches))
	for i, m := range mismatches {
		lines[i] = m.String()
	}
	return strings.Join(lines, "\n")
}
