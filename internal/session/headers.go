package session

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/value"
)

// Header is one request header entry.
type Header struct {
	Name  string
	Value string
}

// Headers keeps insertion order so debug dumps and logs read the way the
// suite wrote them.
type Headers []Header

// Get returns the value for an exact name match.
func (h Headers) Get(name string) (string, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Name == name {
			return h[i].Value, true
		}
	}
	return "", false
}

// GetFold returns the value for a case-insensitive name match.
func (h Headers) GetFold(name string) (string, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if strings.EqualFold(h[i].Name, name) {
			return h[i].Value, true
		}
	}
	return "", false
}

// Set replaces an existing entry with the same name or appends a new one.
func (h Headers) Set(name, val string) Headers {
	for i := range h {
		if h[i].Name == name {
			out := h.Clone()
			out[i].Value = val
			return out
		}
	}
	return append(h.Clone(), Header{Name: name, Value: val})
}

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

func (h Headers) apply(req *http.Request) {
	for _, entry := range h {
		req.Header.Set(entry.Name, entry.Value)
	}
}

func (h Headers) String() string {
	parts := make([]string, len(h))
	for i, entry := range h {
		parts[i] = entry.Name + ": " + entry.Value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// HeadersFrom reads a mapping, or text holding a JSON object, into Headers.
// Scalar values are rendered as text.
func HeadersFrom(v value.Value) (Headers, error) {
	if v.Kind() == value.KindText {
		parsed, err := value.ParseJSON([]byte(v.Text()))
		if err != nil {
			return nil, fmt.Errorf("%w: headers text is not JSON: %v", compare.ErrUsage, err)
		}
		v = parsed
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != value.KindMapping {
		return nil, fmt.Errorf("%w: headers must be a mapping, got %s", compare.ErrUsage, v.Kind())
	}

	out := make(Headers, 0, v.Len())
	for _, m := range v.Members() {
		if m.Value.Kind() == value.KindMapping || m.Value.Kind() == value.KindSequence {
			return nil, fmt.Errorf("%w: header %q must be a scalar", compare.ErrUsage, m.Key)
		}
		val := m.Value.Render()
		if m.Value.IsNull() {
			val = ""
		}
		out = append(out, Header{Name: m.Key, Value: val})
	}
	return out, nil
}
