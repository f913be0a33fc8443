package keywords

import (
	"context"
	"log/slog"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/database"
	"github.com/AbhinavRai30/api-framework/internal/logging"
	"github.com/AbhinavRai30/api-framework/internal/session"
	"github.com/AbhinavRai30/api-framework/internal/testdata"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

// Env holds the collaborators of one suite run.
type Env struct {
	Session  *session.Session
	DB       *database.DB
	Data     *testdata.Store
	Equality compare.Equality
	Logger   *slog.Logger
}

// Standard returns a Library with every built-in keyword bound to env.
// Nil collaborators are created with defaults.
func Standard(env Env) *Library {
	if env.Logger == nil {
		env.Logger = logging.Discard()
	}
	if env.Session == nil {
		env.Session = session.New(session.Options{Logger: env.Logger, Equality: env.Equality})
	}
	if env.DB == nil {
		env.DB = database.New(database.Options{Logger: env.Logger})
	}
	if env.Data == nil {
		env.Data = testdata.NewStore(env.Logger)
	}

	l := NewLibrary()
	l.mustRegister(builtinKeywords(env)...)
	l.mustRegister(apiKeywords(env.Session)...)
	l.mustRegister(databaseKeywords(env.DB)...)
	l.mustRegister(dataKeywords(env.Data, env.Equality)...)
	return l
}

// done returns Null for keywords that produce no value.
func done(err error) (value.Value, error) {
	if err != nil {
		return value.Value{}, err
	}
	return value.Null(), nil
}

func rows(rs []value.Value) value.Value {
	return value.Seq(rs...)
}

func builtinKeywords(env Env) []Keyword {
	return []Keyword{
		{Name: "Log", MinArgs: 1, MaxArgs: 1, Run: func(_ context.Context, args Args) (value.Value, error) {
			env.Logger.Info(args.Value(0).Render())
			return done(nil)
		}},
		{Name: "Should Be Equal", MinArgs: 2, MaxArgs: 2, Run: func(_ context.Context, args Args) (value.Value, error) {
			return done(verify.Mismatches("value", compare.Exact(args[0], args[1], compare.WithEquality(env.Equality))))
		}},
	}
}
