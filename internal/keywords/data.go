package keywords

import (
	"context"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/testdata"
	"github.com/AbhinavRai30/api-framework/internal/value"
)

func dataKeywords(store *testdata.Store, eq compare.Equality) []Keyword {
	convert := func(args Args) (value.Value, []string, error) {
		exclude, err := args.Strings(1, "exclude_columns")
		if err != nil {
			return value.Value{}, nil, err
		}
		return args[0], exclude, nil
	}

	return []Keyword{
		{Name: "Read Test Data From Excel", MinArgs: 2, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "file_path", "sheet_name")
			if err != nil {
				return value.Value{}, err
			}
			rs, err := store.ReadExcel(s[0], s[1])
			if err != nil {
				return value.Value{}, err
			}
			return rows(rs), nil
		}},
		{Name: "Get Test Data By Name", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			name, err := args.String(0, "data_name")
			if err != nil {
				return value.Value{}, err
			}
			return store.ByName(name)
		}},
		{Name: "Get All Test Data", Run: func(context.Context, Args) (value.Value, error) {
			rs, err := store.All()
			if err != nil {
				return value.Value{}, err
			}
			return rows(rs), nil
		}},
		{Name: "Convert Test Data To JSON", MinArgs: 1, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			row, exclude, err := convert(args)
			if err != nil {
				return value.Value{}, err
			}
			text, err := testdata.ToJSON(row, exclude)
			if err != nil {
				return value.Value{}, err
			}
			return value.Text(text), nil
		}},
		{Name: "Convert Test Data To Dict", MinArgs: 1, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			row, exclude, err := convert(args)
			if err != nil {
				return value.Value{}, err
			}
			return testdata.ToDict(row, exclude)
		}},
		{Name: "Get Expected Response", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			return testdata.ExpectedResponse(args[0])
		}},
		{Name: "Should Contain Expected Keys", MinArgs: 2, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			return done(testdata.ShouldContainExpectedKeys(args[0], args[1]))
		}},
		{Name: "Should Match Exactly", MinArgs: 2, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			return done(testdata.ShouldMatchExactly(args[0], args[1], eq))
		}},
	}
}
