// Package content decodes HTTP bodies into structured values according to
// their declared media type.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/xmlvalue"
)

// ErrDecode reports that a body did not match its declared media type. The
// value returned alongside it is the body as text.
var ErrDecode = errors.New("cannot decode body")

// Type is the coarse body format derived from a Content-Type header.
type Type uint8

const (
	Unknown Type = iota
	JSON
	XML
	PlainText
)

func (t Type) String() string {
	switch t {
	case JSON:
		return "json"
	case XML:
		return "xml"
	case PlainText:
		return "text"
	default:
		return "unknown"
	}
}

// Classify maps a Content-Type header value to a Type.
func Classify(contentType string) Type {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}

	switch {
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return JSON
	case mediaType == "application/xml", mediaType == "text/xml", strings.HasSuffix(mediaType, "+xml"):
		return XML
	case mediaType == "text/plain", mediaType == "text/html":
		return PlainText
	default:
		return Unknown
	}
}

// Decode turns body into a value. JSON and XML bodies become structures,
// text bodies stay text and undeclared bodies are tried as JSON first.
func Decode(contentType string, body []byte) (value.Value, error) {
	raw := value.Text(string(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return raw, nil
	}

	switch Classify(contentType) {
	case JSON:
		v, err := value.ParseJSON(body)
		if err != nil {
			return raw, fmt.Errorf("%w as JSON: %v", ErrDecode, err)
		}
		return v, nil
	case XML:
		v, err := xmlvalue.Decode(body)
		if err != nil {
			return raw, fmt.Errorf("%w as XML: %v", ErrDecode, err)
		}
		return v, nil
	case PlainText:
		return raw, nil
	default:
		if v, err := value.ParseJSON(body); err == nil {
			return v, nil
		}
		return raw, nil
	}
}
