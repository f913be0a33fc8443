package keywords

import (
	"context"

	"github.com/AbhinavRai30/api-framework/internal/database"
	"github.com/AbhinavRai30/api-framework/internal/value"
)

// tableArgs reads the leading string arguments named by names.
func tableArgs(args Args, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		s, err := args.String(i, name)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func databaseKeywords(db *database.DB) []Keyword {
	return []Keyword{
		{Name: "Connect To Database", MinArgs: 4, MaxArgs: 5, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "db_host", "db_name", "db_user")
			if err != nil {
				return value.Value{}, err
			}
			password, err := args.StringOr(3, "db_password", "")
			if err != nil {
				return value.Value{}, err
			}
			port, err := args.IntOr(4, "db_port", database.DefaultPort)
			if err != nil {
				return value.Value{}, err
			}
			return done(db.Connect(ctx, database.ConnectParams{
				Host:     s[0],
				Name:     s[1],
				User:     s[2],
				Password: password,
				Port:     int(port),
			}))
		}},
		{Name: "Connect To Database URL", MinArgs: 1, MaxArgs: 1, Run: func(ctx context.Context, args Args) (value.Value, error) {
			url, err := args.String(0, "url")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.ConnectURL(ctx, url))
		}},
		{Name: "Disconnect From Database", Run: func(ctx context.Context, _ Args) (value.Value, error) {
			return done(db.Disconnect(ctx))
		}},
		{Name: "Execute Query", MinArgs: 1, MaxArgs: 1, Run: func(ctx context.Context, args Args) (value.Value, error) {
			query, err := args.String(0, "query")
			if err != nil {
				return value.Value{}, err
			}
			rs, err := db.ExecuteQuery(ctx, query)
			if err != nil {
				return value.Value{}, err
			}
			return rows(rs), nil
		}},
		{Name: "Execute Update", MinArgs: 1, MaxArgs: 1, Run: func(ctx context.Context, args Args) (value.Value, error) {
			query, err := args.String(0, "query")
			if err != nil {
				return value.Value{}, err
			}
			n, err := db.ExecuteUpdate(ctx, query)
			if err != nil {
				return value.Value{}, err
			}
			return value.Int(n), nil
		}},
		{Name: "Table Row Should Exist", MinArgs: 2, MaxArgs: 2, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "table_name", "where_clause")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.TableRowShouldExist(ctx, s[0], s[1]))
		}},
		{Name: "Table Row Should Not Exist", MinArgs: 2, MaxArgs: 2, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "table_name", "where_clause")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.TableRowShouldNotExist(ctx, s[0], s[1]))
		}},
		{Name: "Table Row Count Should Be", MinArgs: 2, MaxArgs: 3, Run: func(ctx context.Context, args Args) (value.Value, error) {
			table, err := args.String(0, "table_name")
			if err != nil {
				return value.Value{}, err
			}
			count, err := args.Int(1, "expected_count")
			if err != nil {
				return value.Value{}, err
			}
			where, err := args.StringOr(2, "where_clause", "")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.TableRowCountShouldBe(ctx, table, count, where))
		}},
		{Name: "Table Row Column Value Should Be", MinArgs: 4, MaxArgs: 4, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "table_name", "where_clause", "column_name")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.TableRowColumnValueShouldBe(ctx, s[0], s[1], s[2], args[3]))
		}},
		{Name: "Get Table Row By ID", MinArgs: 3, MaxArgs: 3, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "table_name", "id_column")
			if err != nil {
				return value.Value{}, err
			}
			return db.RowByID(ctx, s[0], s[1], args[2])
		}},
		{Name: "Get Query Result", Run: func(context.Context, Args) (value.Value, error) {
			return db.QueryResult(), nil
		}},
		{Name: "Get First Row", Run: func(context.Context, Args) (value.Value, error) {
			return db.FirstRow()
		}},
		{Name: "Delete Table Data", MinArgs: 1, MaxArgs: 2, Run: func(ctx context.Context, args Args) (value.Value, error) {
			table, err := args.String(0, "table_name")
			if err != nil {
				return value.Value{}, err
			}
			where, err := args.StringOr(1, "where_clause", "")
			if err != nil {
				return value.Value{}, err
			}
			n, err := db.DeleteTableData(ctx, table, where)
			if err != nil {
				return value.Value{}, err
			}
			return value.Int(n), nil
		}},
		{Name: "Truncate Table", MinArgs: 1, MaxArgs: 1, Run: func(ctx context.Context, args Args) (value.Value, error) {
			table, err := args.String(0, "table_name")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.TruncateTable(ctx, table))
		}},
		{Name: "Verify Record Change", MinArgs: 6, MaxArgs: 6, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "table_name", "id_column")
			if err != nil {
				return value.Value{}, err
			}
			column, err := args.String(3, "column_name")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.VerifyRecordChange(ctx, s[0], s[1], args[2], column, args[4], args[5]))
		}},
		{Name: "Verify Record Created", MinArgs: 3, MaxArgs: 3, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "table_name", "id_column")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.VerifyRecordCreated(ctx, s[0], s[1], args[2]))
		}},
		{Name: "Verify Record Deleted", MinArgs: 3, MaxArgs: 3, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "table_name", "id_column")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.VerifyRecordDeleted(ctx, s[0], s[1], args[2]))
		}},
		{Name: "Verify Table Row Matches Expected Data", MinArgs: 3, MaxArgs: 3, Run: func(ctx context.Context, args Args) (value.Value, error) {
			s, err := tableArgs(args, "table_name", "where_clause")
			if err != nil {
				return value.Value{}, err
			}
			return done(db.VerifyRowMatchesExpectedData(ctx, s[0], s[1], args[2]))
		}},
	}
}
