package sanitizer

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"slices"
)

// Redactor replaces secret values in debug dumps with a salted digest, so
// two dumps of the same secret can still be correlated.
type Redactor struct {
	salt    string
	targets []target
}

type target struct {
	needle      []byte
	replacement []byte
}

// New builds a Redactor for the given secret values. Empty values are
// ignored and longer secrets are replaced first.
func New(salt string, secrets ...string) *Redactor {
	r := &Redactor{salt: salt}

	seen := make(map[string]struct{}, len(secrets))
	for _, s := range secrets {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		r.targets = append(r.targets, target{
			needle:      []byte(s),
			replacement: hashToken(s, salt),
		})
	}

	slices.SortStableFunc(r.targets, func(a, b target) int {
		return cmp.Compare(len(b.needle), len(a.needle))
	})

	return r
}

// Redact returns data with every secret replaced. data is not modified.
func (r *Redactor) Redact(data []byte) []byte {
	if r == nil || len(r.targets) == 0 || len(data) == 0 {
		return data
	}

	out := data
	copied := false
	for _, t := range r.targets {
		if !bytes.Contains(out, t.needle) {
			continue
		}
		if !copied {
			out = bytes.Clone(data)
			copied = true
		}
		out = bytes.ReplaceAll(out, t.needle, t.replacement)
	}
	return out
}

// DumpRequest dumps an outgoing request, body included, with secrets redacted.
func (r *Redactor) DumpRequest(req *http.Request) ([]byte, error) {
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return nil, fmt.Errorf("failed to dump request: %w", err)
	}

	return r.Redact(dump), nil
}

// DumpResponse dumps a response whose body was already read into body.
func (r *Redactor) DumpResponse(resp *http.Response, body []byte) ([]byte, error) {
	clone := new(http.Response)
	*clone = *resp
	clone.Body = io.NopCloser(bytes.NewReader(body))

	dump, err := httputil.DumpResponse(clone, true)
	if err != nil {
		return nil, fmt.Errorf("failed to dump response: %w", err)
	}

	return r.Redact(dump), nil
}

func hashToken(secret, salt string) []byte {
	sum := sha256.Sum256([]byte(salt + secret))
	return []byte("[S256:" + hex.EncodeToString(sum[:8]) + "]")
}
