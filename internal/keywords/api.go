package keywords

import (
	"context"
	"net/http"

	"github.com/AbhinavRai30/api-framework/internal/session"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

func headersArg(args Args, i int) (session.Headers, error) {
	if !args.Has(i) {
		return nil, nil
	}
	return session.HeadersFrom(args[i])
}

func requestKeyword(s *session.Session, name, method string, withPayload bool) Keyword {
	kw := Keyword{Name: name, MinArgs: 1, MaxArgs: 2}
	if withPayload {
		kw.MinArgs, kw.MaxArgs = 2, 4
	}

	kw.Run = func(ctx context.Context, args Args) (value.Value, error) {
		endpoint, err := args.String(0, "endpoint")
		if err != nil {
			return value.Value{}, err
		}

		req := session.Request{Method: method, Endpoint: endpoint}
		headerPos := 1
		if withPayload {
			req.Payload = args.Value(1)
			if req.PayloadType, err = args.StringOr(2, "payload_type", session.PayloadJSON); err != nil {
				return value.Value{}, err
			}
			headerPos = 3
		}
		if req.Headers, err = headersArg(args, headerPos); err != nil {
			return value.Value{}, err
		}

		status, err := s.Do(ctx, req)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(int64(status)), nil
	}
	return kw
}

func apiKeywords(s *session.Session) []Keyword {
	return []Keyword{
		{Name: "Set Base URL", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			url, err := args.String(0, "url")
			if err != nil {
				return value.Value{}, err
			}
			s.SetBaseURL(url)
			return done(nil)
		}},
		{Name: "Set Headers", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			h, err := session.HeadersFrom(args[0])
			if err != nil {
				return value.Value{}, err
			}
			s.SetHeaders(h)
			return done(nil)
		}},
		{Name: "Add Header", MinArgs: 2, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			name, err := args.String(0, "key")
			if err != nil {
				return value.Value{}, err
			}
			val, err := args.StringOr(1, "value", "")
			if err != nil {
				return value.Value{}, err
			}
			s.AddHeader(name, val)
			return done(nil)
		}},
		{Name: "Clear Headers", Run: func(context.Context, Args) (value.Value, error) {
			s.ClearHeaders()
			return done(nil)
		}},

		requestKeyword(s, "Perform GET Request", http.MethodGet, false),
		requestKeyword(s, "Perform POST Request", http.MethodPost, true),
		requestKeyword(s, "Perform PUT Request", http.MethodPut, true),
		requestKeyword(s, "Perform PATCH Request", http.MethodPatch, true),
		requestKeyword(s, "Perform DELETE Request", http.MethodDelete, false),

		{Name: "Response Status Code Should Be", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			code, err := args.Int(0, "expected_status_code")
			if err != nil {
				return value.Value{}, err
			}
			return done(s.StatusCodeShouldBe(int(code)))
		}},
		{Name: "Response Body Should Contain", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			text, err := args.String(0, "expected_text")
			if err != nil {
				return value.Value{}, err
			}
			return done(s.BodyShouldContain(text))
		}},
		{Name: "Response JSON Should Equal", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			return done(s.JSONShouldEqual(args[0]))
		}},
		{Name: "Response JSON Should Contain Key", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			key, err := args.String(0, "key")
			if err != nil {
				return value.Value{}, err
			}
			return done(s.JSONShouldContainKey(key))
		}},
		{Name: "Response JSON Value Should Be", MinArgs: 2, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			key, err := args.String(0, "key")
			if err != nil {
				return value.Value{}, err
			}
			return done(s.JSONValueShouldBe(key, args[1]))
		}},
		{Name: "Response JSON Value Should Satisfy", MinArgs: 2, MaxArgs: 3, Run: func(_ context.Context, args Args) (value.Value, error) {
			key, err := args.String(0, "key")
			if err != nil {
				return value.Value{}, err
			}
			op, err := args.String(1, "operator")
			if err != nil {
				return value.Value{}, err
			}
			var operand *value.Value
			if len(args) > 2 {
				v := args[2]
				operand = &v
			}
			return done(s.JSONValueShouldSatisfy(key, op, operand))
		}},
		{Name: "Response JSON Should Match Schema", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			return done(s.JSONShouldMatchSchema(args[0]))
		}},
		{Name: "Response Header Should Be", MinArgs: 2, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			name, err := args.String(0, "name")
			if err != nil {
				return value.Value{}, err
			}
			expected, err := args.StringOr(1, "expected_value", "")
			if err != nil {
				return value.Value{}, err
			}
			return done(s.HeaderShouldBe(name, expected))
		}},

		{Name: "Get Response Body", Run: func(context.Context, Args) (value.Value, error) {
			return s.ResponseBody()
		}},
		{Name: "Get Response JSON Value", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			key, err := args.String(0, "key")
			if err != nil {
				return value.Value{}, err
			}
			return s.JSONValue(key)
		}},
		{Name: "Get Response Status Code", Run: func(context.Context, Args) (value.Value, error) {
			code, err := s.StatusCode()
			if err != nil {
				return value.Value{}, err
			}
			return value.Int(int64(code)), nil
		}},
		{Name: "Get Response Time", Run: func(context.Context, Args) (value.Value, error) {
			secs, err := s.ResponseTime()
			if err != nil {
				return value.Value{}, err
			}
			return value.Float(secs), nil
		}},
		{Name: "Get Response Header", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			name, err := args.String(0, "name")
			if err != nil {
				return value.Value{}, err
			}
			last, err := s.Last()
			if err != nil {
				return value.Value{}, err
			}
			if _, ok := last.Header[http.CanonicalHeaderKey(name)]; !ok {
				return value.Value{}, verify.Failf("header %q not found in response", name)
			}
			return value.Text(last.Header.Get(name)), nil
		}},
	}
}
