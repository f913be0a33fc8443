package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/AbhinavRai30/api-framework/internal/value"
)

var ErrUndefined = errors.New("undefined variable")

// refPattern matches an argument that is exactly one variable reference,
// such as "{{ .payload }}" or "{{ .row.title }}".
var refPattern = regexp.MustCompile(`^\{\{\s*\.([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*\}\}$`)

// Vars is a variable scope. Lookups fall back to the parent scope, writes
// stay local.
type Vars struct {
	parent *Vars
	values map[string]value.Value
}

func NewVars(parent *Vars) *Vars {
	return &Vars{parent: parent, values: make(map[string]value.Value)}
}

func (v *Vars) Set(name string, val value.Value) {
	v.values[name] = val
}

func (v *Vars) Get(name string) (value.Value, bool) {
	for s := v; s != nil; s = s.parent {
		if val, ok := s.values[name]; ok {
			return val, true
		}
	}
	return value.Value{}, false
}

// Data flattens the scope chain into template data.
func (v *Vars) Data() map[string]any {
	var chain []*Vars
	for s := v; s != nil; s = s.parent {
		chain = append(chain, s)
	}

	out := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		for name, val := range chain[i].values {
			out[name] = val.ToAny()
		}
	}
	return out
}

// Expand resolves templates inside arg. A text that is exactly one
// variable reference is replaced by the variable's value with its type
// intact; other texts are rendered as templates. Mappings and sequences are
// expanded element by element.
func (v *Vars) Expand(arg value.Value) (value.Value, error) {
	switch arg.Kind() {
	case value.KindText:
		return v.expandText(arg.Text())
	case value.KindMapping:
		members := make([]value.Member, 0, arg.Len())
		for _, m := range arg.Members() {
			key, err := Apply("key", m.Key, v.Data())
			if err != nil {
				return value.Value{}, fmt.Errorf("key %q: %w", m.Key, err)
			}
			val, err := v.Expand(m.Value)
			if err != nil {
				return value.Value{}, fmt.Errorf("key %q: %w", m.Key, err)
			}
			members = append(members, value.Pair(key, val))
		}
		return value.Map(members...), nil
	case value.KindSequence:
		items := make([]value.Value, 0, arg.Len())
		for i, item := range arg.Items() {
			val, err := v.Expand(item)
			if err != nil {
				return value.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, val)
		}
		return value.Seq(items...), nil
	default:
		return arg, nil
	}
}

// ExpandText renders s as a template against the scope.
func (v *Vars) ExpandText(s string) (string, error) {
	return Apply("text", s, v.Data())
}

func (v *Vars) expandText(s string) (value.Value, error) {
	if m := refPattern.FindStringSubmatch(s); m != nil {
		return v.lookup(m[1])
	}
	out, err := v.ExpandText(s)
	if err != nil {
		return value.Value{}, err
	}
	return value.Text(out), nil
}

func (v *Vars) lookup(path string) (value.Value, error) {
	parts := strings.Split(path, ".")
	cur, ok := v.Get(parts[0])
	if !ok {
		return value.Value{}, fmt.Errorf("%w: %s", ErrUndefined, parts[0])
	}
	for i, key := range parts[1:] {
		next, ok := cur.Get(key)
		if !ok {
			return value.Value{}, fmt.Errorf("%w: %s", ErrUndefined, strings.Join(parts[:i+2], "."))
		}
		cur = next
	}
	return cur, nil
}
