package keywords

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/testdata"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

func TestLookupIgnoresCaseSpacesAndUnderscores(t *testing.T) {
	t.Parallel()

	l := Standard(Env{})

	for _, name := range []string{"Set Base URL", "set_base_url", "SET BASE URL", "setBaseUrl", "Set-Base-URL"} {
		kw, ok := l.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, "Set Base URL", kw.Name)
	}

	_, ok := l.Lookup("Set Base")
	assert.False(t, ok)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	t.Parallel()

	l := NewLibrary()
	noop := func(context.Context, Args) (value.Value, error) { return value.Null(), nil }

	require.NoError(t, l.Register(Keyword{Name: "Do Thing", Run: noop}))
	require.Error(t, l.Register(Keyword{Name: "do_thing", Run: noop}))
	require.Error(t, l.Register(Keyword{Name: "", Run: noop}))
	require.Error(t, l.Register(Keyword{Name: "Other"}))
	require.Error(t, l.Register(Keyword{Name: "Bad Arity", MinArgs: 2, MaxArgs: 1, Run: noop}))

	assert.Equal(t, []string{"Do Thing"}, l.Names())
}

func TestRunChecksArgumentCount(t *testing.T) {
	t.Parallel()

	l := Standard(Env{})
	ctx := context.Background()

	_, err := l.Run(ctx, "Set Base URL", nil)
	require.ErrorIs(t, err, compare.ErrUsage)
	assert.Contains(t, err.Error(), `keyword "Set Base URL" expects 1 arguments, got 0`)

	_, err = l.Run(ctx, "Perform POST Request", []value.Value{value.Text("/x")})
	require.ErrorIs(t, err, compare.ErrUsage)
	assert.Contains(t, err.Error(), "expects 2 to 4 arguments")

	_, err = l.Run(ctx, "No Such Keyword", nil)
	require.ErrorIs(t, err, compare.ErrUsage)
}

func TestArgs(t *testing.T) {
	t.Parallel()

	args := Args{
		value.Text("201"),
		value.Int(5),
		value.Null(),
		value.Text(`["a", "b"]`),
		value.Text("a, b ,c"),
		value.Seq(value.Text("x"), value.Int(1)),
		value.Map(),
	}

	n, err := args.Int(0, "code")
	require.NoError(t, err)
	assert.Equal(t, int64(201), n)

	s, err := args.String(1, "n")
	require.NoError(t, err)
	assert.Equal(t, "5", s)

	assert.False(t, args.Has(2))
	def, err := args.StringOr(2, "opt", "json")
	require.NoError(t, err)
	assert.Equal(t, "json", def)

	list, err := args.Strings(3, "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	list, err = args.Strings(4, "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, list)

	list, err = args.Strings(5, "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "1"}, list)

	list, err = args.Strings(9, "list")
	require.NoError(t, err)
	assert.Nil(t, list)

	_, err = args.String(6, "m")
	require.ErrorIs(t, err, compare.ErrUsage)
	_, err = args.Int(4, "n")
	require.ErrorIs(t, err, compare.ErrUsage)
	_, err = args.String(2, "required")
	require.ErrorIs(t, err, compare.ErrUsage)
}

func TestAPIKeywordsAgainstServer(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/films", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", "/films/3")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"film_id": 3, "title": "Inception", "rental_rate": 6.99, "last_update": "2024-01-01"}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	l := Standard(Env{})
	ctx := context.Background()
	run := func(name string, args ...value.Value) value.Value {
		t.Helper()
		v, err := l.Run(ctx, name, args)
		require.NoError(t, err, name)
		return v
	}

	run("Set Base URL", value.Text(srv.URL))
	run("Set Headers", value.Text(`{"Accept": "application/json"}`))

	status := run("Perform POST Request", value.Text("/films"), value.Text(`{"title": "Inception"}`))
	assert.Equal(t, "201", status.Render())

	run("Response Status Code Should Be", value.Text("201"))
	run("Response JSON Should Contain Key", value.Text("film_id"))
	run("Response JSON Value Should Be", value.Text("title"), value.Text("Inception"))
	run("Response JSON Value Should Satisfy", value.Text("rental_rate"), value.Text("less_than"), value.Int(10))
	run("Response JSON Should Equal", value.Text(`{"film_id": 3, "title": "Inception", "rental_rate": 6.99}`))
	run("Should Contain Expected Keys", run("Get Response Body"), value.Text(`{"film_id": 0, "title": ""}`))
	run("Response Header Should Be", value.Text("Location"), value.Text("/films/3"))

	assert.Equal(t, "/films/3", run("Get Response Header", value.Text("location")).Text())
	assert.Equal(t, "3", run("Get Response JSON Value", value.Text("$.film_id")).Render())
	assert.Equal(t, "201", run("Get Response Status Code").Render())

	_, err := l.Run(ctx, "Response JSON Value Should Be", []value.Value{value.Text("film_id"), value.Int(4)})
	require.True(t, verify.IsFailure(err))
}

func TestDataKeywords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := testdata.WriteSamples(dir)
	require.NoError(t, err)

	l := Standard(Env{})
	ctx := context.Background()

	all, err := l.Run(ctx, "Read Test Data From Excel", []value.Value{value.Text(filepath.Join(dir, "film_test_data.xlsx")), value.Text("Films")})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Len())

	row, err := l.Run(ctx, "Get Test Data By Name", []value.Value{value.Text("forrest gump")})
	require.NoError(t, err)

	payload, err := l.Run(ctx, "Convert Test Data To Dict", []value.Value{row, value.Text("expected_response, description, fulltext")})
	require.NoError(t, err)
	assert.False(t, payload.Has("expected_response"))
	assert.False(t, payload.Has("description"))
	assert.True(t, payload.Has("rental_rate"))

	text, err := l.Run(ctx, "Convert Test Data To JSON", []value.Value{row})
	require.NoError(t, err)
	assert.Contains(t, text.Text(), `"title":"Forrest Gump"`)
	assert.NotContains(t, text.Text(), "expected_response")

	expected, err := l.Run(ctx, "Get Expected Response", []value.Value{row})
	require.NoError(t, err)
	assert.Equal(t, `{"film_id":4,"title":"Forrest Gump","rental_rate":3.99}`, expected.String())

	actual := value.Text(`{"film_id": 4, "title": "Forrest Gump", "rental_rate": 3.99, "rating": "PG"}`)
	_, err = l.Run(ctx, "Should Match Exactly", []value.Value{actual, expected})
	require.NoError(t, err)

	_, err = l.Run(ctx, "Should Be Equal", []value.Value{value.Int(1), value.Float(1.0)})
	require.NoError(t, err)
}

func TestDatabaseKeywordsRequireConnection(t *testing.T) {
	t.Parallel()

	l := Standard(Env{})

	_, err := l.Run(context.Background(), "Execute Query", []value.Value{value.Text("SELECT 1")})
	require.True(t, verify.IsUsage(err))

	q, err := l.Run(context.Background(), "Get Query Result", nil)
	require.NoError(t, err)
	assert.True(t, q.IsNull())

	_, err = l.Run(context.Background(), "Connect To Database", []value.Value{value.Text("db"), value.Text("films"), value.Text("user"), value.Text("pw"), value.Text("port")})
	require.True(t, verify.IsUsage(err))
}
