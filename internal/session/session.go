// Package session implements the HTTP keywords. A Session owns the base URL,
// default headers and last response of one suite run; nothing is global, so
// independent sessions can run side by side.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/content"
	"github.com/AbhinavRai30/api-framework/internal/logging"
	"github.com/AbhinavRai30/api-framework/internal/predicate"
	"github.com/AbhinavRai30/api-framework/internal/ratelimit"
	"github.com/AbhinavRai30/api-framework/internal/sanitizer"
	"github.com/AbhinavRai30/api-framework/internal/schema"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/xmlvalue"
)

const (
	PayloadJSON = "json"
	PayloadXML  = "xml"
)

// ErrNoResponse is returned by response keywords called before any request.
var ErrNoResponse = fmt.Errorf("%w: no response recorded, perform a request first", compare.ErrUsage)

// Options wires a Session to the run's shared infrastructure. Zero values
// fall back to an untuned client, no rate limit and a discarding logger.
type Options struct {
	Client   *http.Client
	Limiter  *ratelimit.Limiter
	Logger   *slog.Logger
	Equality compare.Equality
	// DebugOut receives redacted request and response dumps when set.
	DebugOut io.Writer
	Redactor *sanitizer.Redactor
	Schemas  *schema.Cache
}

// Response is the last exchange recorded by a Session.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       value.Value
	Raw        []byte
	Elapsed    time.Duration
}

// Request describes one keyword-driven HTTP call.
type Request struct {
	Method   string
	Endpoint string
	// Payload is sent for methods that carry a body; Null sends none.
	Payload     value.Value
	PayloadType string
	// Headers replace the session defaults when non-empty.
	Headers Headers
}

type Session struct {
	client     *http.Client
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
	equality   compare.Equality
	debugOut   io.Writer
	redactor   *sanitizer.Redactor
	schemas    *schema.Cache
	predicates *predicate.Evaluator

	baseURL string
	headers Headers
	last    *Response
}

func New(opts Options) *Session {
	s := &Session{
		client:     opts.Client,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		equality:   opts.Equality,
		debugOut:   opts.DebugOut,
		redactor:   opts.Redactor,
		schemas:    opts.Schemas,
		predicates: predicate.NewEvaluator(),
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 30 * time.Second}
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(0)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.schemas == nil {
		s.schemas = schema.NewCache()
	}
	return s
}

func (s *Session) SetBaseURL(url string) {
	s.baseURL = url
	s.logger.Info("base URL set", "url", url)
}

func (s *Session) BaseURL() string {
	return s.baseURL
}

// SetHeaders replaces the default headers.
func (s *Session) SetHeaders(h Headers) {
	s.headers = h.Clone()
	s.logger.Info("headers set", "headers", s.headers.String())
}

func (s *Session) AddHeader(name, val string) {
	s.headers = s.headers.Set(name, val)
	s.logger.Info("header added", "name", name, "value", val)
}

func (s *Session) ClearHeaders() {
	s.headers = nil
	s.logger.Info("all headers cleared")
}

func (s *Session) Headers() Headers {
	return s.headers.Clone()
}

// URL resolves endpoint against the base URL. Endpoints starting with
// "http" are used unchanged.
func (s *Session) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http") {
		return endpoint
	}
	if s.baseURL == "" {
		return endpoint
	}
	return strings.TrimRight(s.baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func (s *Session) Get(ctx context.Context, endpoint string, headers Headers) (int, error) {
	return s.Do(ctx, Request{Method: http.MethodGet, Endpoint: endpoint, Headers: headers})
}

func (s *Session) Delete(ctx context.Context, endpoint string, headers Headers) (int, error) {
	return s.Do(ctx, Request{Method: http.MethodDelete, Endpoint: endpoint, Headers: headers})
}

func (s *Session) Post(ctx context.Context, endpoint string, payload value.Value, payloadType string, headers Headers) (int, error) {
	return s.Do(ctx, Request{Method: http.MethodPost, Endpoint: endpoint, Payload: payload, PayloadType: payloadType, Headers: headers})
}

func (s *Session) Put(ctx context.Context, endpoint string, payload value.Value, payloadType string, headers Headers) (int, error) {
	return s.Do(ctx, Request{Method: http.MethodPut, Endpoint: endpoint, Payload: payload, PayloadType: payloadType, Headers: headers})
}

func (s *Session) Patch(ctx context.Context, endpoint string, payload value.Value, payloadType string, headers Headers) (int, error) {
	return s.Do(ctx, Request{Method: http.MethodPatch, Endpoint: endpoint, Payload: payload, PayloadType: payloadType, Headers: headers})
}

// Do performs the request, records the response and returns its status code.
// Transport failures are returned as errors; HTTP error statuses are not.
func (s *Session) Do(ctx context.Context, r Request) (int, error) {
	method := strings.ToUpper(r.Method)
	url := s.URL(r.Endpoint)

	headers := r.Headers.Clone()
	if len(headers) == 0 {
		headers = s.headers.Clone()
	}

	var body io.Reader
	if !r.Payload.IsNull() {
		payload, contentType, err := encodePayload(r.Payload, r.PayloadType)
		if err != nil {
			return 0, fmt.Errorf("%s request failed: %w", method, err)
		}
		if _, ok := headers.GetFold("Content-Type"); !ok && contentType != "" {
			headers = headers.Set("Content-Type", contentType)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, fmt.Errorf("%w: %s request to %q: %v", compare.ErrUsage, method, url, err)
	}
	headers.apply(req)

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiting interrupted: %w", err)
	}

	s.debugRequest(req)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return 0, fmt.Errorf("%s request failed: reading response body: %w", method, err)
	}

	s.debugResponse(resp, raw)

	decoded, err := content.Decode(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		s.logger.Warn("could not parse response body", "error", err)
	}

	s.last = &Response{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       decoded,
		Raw:        raw,
		Elapsed:    elapsed,
	}

	attrs := []any{"url", url, "status", resp.StatusCode, "response_time", elapsed.Seconds()}
	if r.PayloadType != "" && body != nil {
		attrs = append(attrs, "payload_type", r.PayloadType)
	}
	s.logger.Info(method+" request", attrs...)

	return resp.StatusCode, nil
}

// encodePayload renders a request body. JSON and XML payloads given as
// structures are encoded; text payloads are sent verbatim.
func encodePayload(payload value.Value, payloadType string) ([]byte, string, error) {
	switch strings.ToLower(strings.TrimSpace(payloadType)) {
	case "", PayloadJSON:
		if payload.Kind() == value.KindText {
			return []byte(payload.Text()), "application/json", nil
		}
		data, err := payload.MarshalJSON()
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	case PayloadXML:
		if payload.Kind() == value.KindText {
			return []byte(payload.Text()), "application/xml", nil
		}
		data, err := xmlvalue.Encode(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", compare.ErrUsage, err)
		}
		return data, "application/xml", nil
	default:
		return []byte(payload.Render()), "", nil
	}
}

// Last returns the last recorded response.
func (s *Session) Last() (*Response, error) {
	if s.last == nil {
		return nil, ErrNoResponse
	}
	return s.last, nil
}

func (s *Session) debugRequest(req *http.Request) {
	if s.debugOut == nil {
		return
	}

	dump, err := s.redactor.DumpRequest(req)
	if err != nil {
		fmt.Fprintf(s.debugOut, "Error dumping request: %v\n", err)
		return
	}

	fmt.Fprintln(s.debugOut, "========================================")
	fmt.Fprintln(s.debugOut, "REQUEST:")
	fmt.Fprintln(s.debugOut, "========================================")
	fmt.Fprintln(s.debugOut, string(dump))
}

func (s *Session) debugResponse(resp *http.Response, body []byte) {
	if s.debugOut == nil {
		return
	}

	dump, err := s.redactor.DumpResponse(resp, body)
	if err != nil {
		fmt.Fprintf(s.debugOut, "Error dumping response: %v\n", err)
		return
	}

	fmt.Fprintln(s.debugOut, "========================================")
	fmt.Fprintln(s.debugOut, "RESPONSE:")
	fmt.Fprintln(s.debugOut, "========================================")
	fmt.Fprintln(s.debugOut, string(dump))
}
