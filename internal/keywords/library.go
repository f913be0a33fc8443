// Package keywords maps human-readable keyword names to the operations of
// the session, database and test data collaborators.
package keywords

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/value"
)

// Unlimited as MaxArgs accepts any number of trailing arguments.
const Unlimited = -1

type Func func(ctx context.Context, args Args) (value.Value, error)

type Keyword struct {
	Name    string
	MinArgs int
	MaxArgs int
	Run     Func
}

// Library is a keyword registry. Lookups ignore case, spaces and
// underscores, so "Set Base URL" and "set_base_url" name the same keyword.
// A Library is not safe for concurrent use.
type Library struct {
	fold     cases.Caser
	keywords map[string]Keyword
	order    []string
}

func NewLibrary() *Library {
	return &Library{
		fold:     cases.Fold(),
		keywords: make(map[string]Keyword),
	}
}

func (l *Library) normalize(name string) string {
	folded := l.fold.String(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '\t', '-':
			return -1
		}
		return r
	}, folded)
}

func (l *Library) Register(kw Keyword) error {
	key := l.normalize(kw.Name)
	if key == "" {
		return fmt.Errorf("register keyword: empty name")
	}
	if kw.Run == nil {
		return fmt.Errorf("register keyword %q: nil function", kw.Name)
	}
	if kw.MaxArgs != Unlimited && kw.MaxArgs < kw.MinArgs {
		return fmt.Errorf("register keyword %q: max args %d below min args %d", kw.Name, kw.MaxArgs, kw.MinArgs)
	}
	if prev, ok := l.keywords[key]; ok {
		return fmt.Errorf("register keyword %q: conflicts with %q", kw.Name, prev.Name)
	}
	l.keywords[key] = kw
	l.order = append(l.order, kw.Name)
	return nil
}

func (l *Library) mustRegister(kws ...Keyword) {
	for _, kw := range kws {
		if err := l.Register(kw); err != nil {
			panic(err)
		}
	}
}

func (l *Library) Lookup(name string) (Keyword, bool) {
	kw, ok := l.keywords[l.normalize(name)]
	return kw, ok
}

// Names lists registered keywords in registration order.
func (l *Library) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Run checks the argument count and calls the keyword.
func (l *Library) Run(ctx context.Context, name string, args []value.Value) (value.Value, error) {
	kw, ok := l.Lookup(name)
	if !ok {
		return value.Value{}, fmt.Errorf("%w: no keyword with name %q", compare.ErrUsage, name)
	}
	if len(args) < kw.MinArgs || (kw.MaxArgs != Unlimited && len(args) > kw.MaxArgs) {
		return value.Value{}, fmt.Errorf("%w: keyword %q expects %s, got %d", compare.ErrUsage, kw.Name, arity(kw), len(args))
	}
	return kw.Run(ctx, Args(args))
}

func arity(kw Keyword) string {
	switch {
	case kw.MaxArgs == Unlimited:
		return fmt.Sprintf("at least %d arguments", kw.MinArgs)
	case kw.MinArgs == kw.MaxArgs:
		return fmt.Sprintf("%d arguments", kw.MinArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", kw.MinArgs, kw.MaxArgs)
	}
}

// Args are the positional arguments of one keyword call.
type Args []value.Value

// Has reports whether position i was given and is not null.
func (a Args) Has(i int) bool {
	return i < len(a) && !a[i].IsNull()
}

// Value returns position i, or Null when absent.
func (a Args) Value(i int) value.Value {
	if i < len(a) {
		return a[i]
	}
	return value.Null()
}

// String renders a scalar argument as text.
func (a Args) String(i int, name string) (string, error) {
	if !a.Has(i) {
		return "", fmt.Errorf("%w: argument %s is required", compare.ErrUsage, name)
	}
	v := a[i]
	if v.Kind() == value.KindMapping || v.Kind() == value.KindSequence {
		return "", fmt.Errorf("%w: argument %s must be a scalar, got %s", compare.ErrUsage, name, v.Kind())
	}
	return v.Render(), nil
}

// StringOr is String with a default for absent or null arguments.
func (a Args) StringOr(i int, name, def string) (string, error) {
	if !a.Has(i) {
		return def, nil
	}
	return a.String(i, name)
}

// Int reads an integral number or numeric text.
func (a Args) Int(i int, name string) (int64, error) {
	if !a.Has(i) {
		return 0, fmt.Errorf("%w: argument %s is required", compare.ErrUsage, name)
	}
	v := a[i]
	switch v.Kind() {
	case value.KindNumber:
		if n, ok := v.Int64(); ok {
			return n, nil
		}
	case value.KindText:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.Text()), 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: argument %s must be an integer, got %s", compare.ErrUsage, name, v)
}

// IntOr is Int with a default for absent or null arguments.
func (a Args) IntOr(i int, name string, def int64) (int64, error) {
	if !a.Has(i) {
		return def, nil
	}
	return a.Int(i, name)
}

// Strings reads a list given as a sequence, JSON array text or
// comma-separated text. Absent arguments return nil.
func (a Args) Strings(i int, name string) ([]string, error) {
	if !a.Has(i) {
		return nil, nil
	}
	v := a[i]
	if v.Kind() == value.KindText {
		text := strings.TrimSpace(v.Text())
		if strings.HasPrefix(text, "[") {
			parsed, err := value.ParseJSON([]byte(text))
			if err != nil {
				return nil, fmt.Errorf("%w: argument %s: %v", compare.ErrUsage, name, err)
			}
			v = parsed
		} else {
			var out []string
			for _, part := range strings.Split(text, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			if out == nil {
				out = []string{}
			}
			return out, nil
		}
	}
	if v.Kind() != value.KindSequence {
		return nil, fmt.Errorf("%w: argument %s must be a list, got %s", compare.ErrUsage, name, v.Kind())
	}

	out := make([]string, 0, v.Len())
	for _, item := range v.Items() {
		if item.Kind() == value.KindMapping || item.Kind() == value.KindSequence {
			return nil, fmt.Errorf("%w: argument %s must list scalars", compare.ErrUsage, name)
		}
		out = append(out, item.Render())
	}
	return out, nil
}
