// Package value models parsed response bodies, expected literals, database
// rows and spreadsheet rows as one ordered, tagged structure.
package value

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Member is one key/value entry of a mapping.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable structured value. The zero Value is Null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // number literal or text payload
	members []Member
	index   map[string]int
	items   []Value
}

func Null() Value {
	return Value{}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

func Int(i int64) Value {
	return Value{kind: KindNumber, text: strconv.FormatInt(i, 10)}
}

// Float renders f the way encoding/json does, so 4.99 stays "4.99".
// NaN and infinities have no JSON form and become Text.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Text(strconv.FormatFloat(f, 'g', -1, 64))
	}
	abs := f
	if abs < 0 {
		abs = -abs
	}
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, format, -1, 64)}
}

// Number keeps the literal as written; n must be a valid JSON number.
func Number(n json.Number) Value {
	return Value{kind: KindNumber, text: n.String()}
}

func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Pair is shorthand for building mapping members.
func Pair(key string, v Value) Member {
	return Member{Key: key, Value: v}
}

// Map builds a mapping in member order. A repeated key keeps its first
// position and takes the last value.
func Map(members ...Member) Value {
	out := Value{
		kind:    KindMapping,
		members: make([]Member, 0, len(members)),
		index:   make(map[string]int, len(members)),
	}
	for _, m := range members {
		if i, ok := out.index[m.Key]; ok {
			out.members[i].Value = m.Value
			continue
		}
		out.index[m.Key] = len(out.members)
		out.members = append(out.members, m)
	}
	return out
}

func Seq(items ...Value) Value {
	copied := make([]Value, len(items))
	copy(copied, items)
	return Value{kind: KindSequence, items: copied}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool {
	return v.kind == KindBool && v.boolean
}

// Number returns the number literal; empty for other kinds.
func (v Value) Number() json.Number {
	if v.kind != KindNumber {
		return ""
	}
	return json.Number(v.text)
}

// Text returns the text payload; empty for other kinds.
func (v Value) Text() string {
	if v.kind != KindText {
		return ""
	}
	return v.text
}

// Float64 reports the numeric payload as float64.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int64 reports the numeric payload as int64 when it is integral.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if i, err := strconv.ParseInt(v.text, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Len is the member count of a mapping, the item count of a sequence or the
// rune count of a text. Other kinds have length zero.
func (v Value) Len() int {
	switch v.kind {
	case KindMapping:
		return len(v.members)
	case KindSequence:
		return len(v.items)
	case KindText:
		return len([]rune(v.text))
	default:
		return 0
	}
}

func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.members))
	for _, m := range v.members {
		keys = append(keys, m.Key)
	}
	return keys
}

func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	i, ok := v.index[key]
	if !ok {
		return Value{}, false
	}
	return v.members[i].Value, true
}

func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Members returns a copy of the mapping entries in order.
func (v Value) Members() []Member {
	out := make([]Member, len(v.members))
	copy(out, v.members)
	return out
}

// Items returns a copy of the sequence elements.
func (v Value) Items() []Value {
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

func (v Value) Index(i int) Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// With returns a mapping with key set to val, appended when absent.
func (v Value) With(key string, val Value) Value {
	members := v.Members()
	return Map(append(members, Pair(key, val))...)
}

// Without returns a mapping without the listed keys.
func (v Value) Without(keys ...string) Value {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	kept := make([]Member, 0, len(v.members))
	for _, m := range v.members {
		if _, ok := drop[m.Key]; !ok {
			kept = append(kept, m)
		}
	}
	return Map(kept...)
}

// Equal reports type-and-value equality. Numbers compare numerically, so 1
// and 1.0 are equal; mapping key order is irrelevant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolean == b.boolean
	case KindNumber:
		return NumbersEqual(a, b)
	case KindText:
		return a.text == b.text
	case KindMapping:
		if len(a.members) != len(b.members) {
			return false
		}
		for _, m := range a.members {
			other, ok := b.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	case KindSequence:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// NumbersEqual compares two numbers by exact decimal value, so 1 and 1.0
// are equal while integers past float64 precision stay distinct.
func NumbersEqual(a, b Value) bool {
	if a.text == b.text {
		return true
	}
	if hugeExponent(a.text) || hugeExponent(b.text) {
		af, aok := a.Float64()
		bf, bok := b.Float64()
		return aok && bok && af == bf
	}
	ar, aok := new(big.Rat).SetString(a.text)
	br, bok := new(big.Rat).SetString(b.text)
	return aok && bok && ar.Cmp(br) == 0
}

// hugeExponent reports literals such as 1e999999 whose exact value would
// need an enormous big.Rat.
func hugeExponent(lit string) bool {
	i := strings.IndexAny(lit, "eE")
	if i < 0 {
		return false
	}
	exp, err := strconv.Atoi(strings.TrimPrefix(lit[i+1:], "+"))
	return err != nil || exp > 1000 || exp < -1000
}

// Render is the plain text form: text without quotes, numbers as written,
// null as "null" and containers as JSON.
func (v Value) Render() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindNumber, KindText:
		return v.text
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// String is the JSON form, used in failure messages.
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return v.Render()
	}
	return string(data)
}

// MarshalJSON writes mappings in member order.
func (v Value) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	if err := v.writeJSON(&b); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func (v Value) writeJSON(b *strings.Builder) error {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		b.WriteString(v.text)
	case KindText:
		quoted, err := json.Marshal(v.text)
		if err != nil {
			return err
		}
		b.Write(quoted)
	case KindMapping:
		b.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				b.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			b.Write(key)
			b.WriteByte(':')
			if err := m.Value.writeJSON(b); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case KindSequence:
		b.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := item.writeJSON(b); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	}
	return nil
}

// UnmarshalJSON keeps member order and number literals.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
