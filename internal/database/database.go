// Package database implements the PostgreSQL keywords on top of pgx.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/logging"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

const DefaultPort = 5432

var (
	ErrNotConnected = fmt.Errorf("%w: not connected to database", compare.ErrUsage)
	ErrNoResults    = errors.New("no query results available")
)

// Conn is the subset of *pgx.Conn the keywords use.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// Dialer opens a connection for a connection string.
type Dialer func(ctx context.Context, connString string) (Conn, error)

func dialPgx(ctx context.Context, connString string) (Conn, error) {
	return pgx.Connect(ctx, connString)
}

// ConnectParams are the arguments of Connect To Database.
type ConnectParams struct {
	Host     string `validate:"required"`
	Name     string `validate:"required"`
	User     string `validate:"required"`
	Password string
	Port     int `validate:"min=1,max=65535"`
}

// URL renders the params as a postgres:// connection string.
func (p ConnectParams) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Name,
	}
	return u.String()
}

type Options struct {
	Dialer Dialer
	Logger *slog.Logger
}

// DB holds one connection and the rows of the last query.
type DB struct {
	dial     Dialer
	logger   *slog.Logger
	validate *validator.Validate

	conn    Conn
	target  string
	last    []value.Value
	queried bool
}

func New(opts Options) *DB {
	db := &DB{
		dial:     opts.Dialer,
		logger:   opts.Logger,
		validate: validator.New(),
	}
	if db.dial == nil {
		db.dial = dialPgx
	}
	if db.logger == nil {
		db.logger = logging.Discard()
	}
	return db
}

// Connect validates p and opens a connection, closing any previous one.
func (db *DB) Connect(ctx context.Context, p ConnectParams) error {
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if err := db.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: connect to database: %v", compare.ErrUsage, err)
	}
	return db.open(ctx, p.URL(), fmt.Sprintf("%s on %s:%d", p.Name, p.Host, p.Port))
}

// ConnectURL opens a connection from a postgres:// URL or keyword/value DSN.
func (db *DB) ConnectURL(ctx context.Context, connString string) error {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("%w: invalid database URL: %v", compare.ErrUsage, err)
	}
	return db.open(ctx, connString, fmt.Sprintf("%s on %s:%d", cfg.Database, cfg.Host, cfg.Port))
}

func (db *DB) open(ctx context.Context, connString, target string) error {
	if db.conn != nil {
		if err := db.Disconnect(ctx); err != nil {
			return err
		}
	}

	conn, err := db.dial(ctx, connString)
	if err != nil {
		return verify.Failf("failed to connect to database: %v", err)
	}
	db.conn = conn
	db.target = target
	db.logger.Info("connected to database", "target", target)
	return nil
}

func (db *DB) Connected() bool {
	return db.conn != nil
}

func (db *DB) Disconnect(ctx context.Context) error {
	if db.conn == nil {
		return nil
	}
	err := db.conn.Close(ctx)
	db.conn = nil
	if err != nil {
		return fmt.Errorf("failed to disconnect from database: %w", err)
	}
	db.logger.Info("disconnected from database", "target", db.target)
	return nil
}

// ExecuteQuery runs a SELECT and keeps its rows as the last result. Rows are
// mappings with columns in select order.
func (db *DB) ExecuteQuery(ctx context.Context, sql string, args ...any) ([]value.Value, error) {
	if db.conn == nil {
		return nil, ErrNotConnected
	}

	rows, err := db.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, verify.Failf("query execution failed: %v", err)
	}
	result, err := collectRows(rows)
	if err != nil {
		return nil, verify.Failf("query execution failed: %v", err)
	}

	db.last = result
	db.queried = true
	db.logger.Info("query executed", "query", sql, "rows", len(result))
	return result, nil
}

// ExecuteUpdate runs a statement in a transaction and returns the affected
// row count. The transaction is rolled back when the statement fails.
func (db *DB) ExecuteUpdate(ctx context.Context, sql string, args ...any) (int64, error) {
	if db.conn == nil {
		return 0, ErrNotConnected
	}

	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return 0, verify.Failf("update execution failed: %v", err)
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			db.logger.Warn("rollback failed", "error", rbErr)
		}
		return 0, verify.Failf("update execution failed: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, verify.Failf("update execution failed: %v", err)
	}

	db.logger.Info("update executed", "query", sql, "rows_affected", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// QueryResult returns the rows of the last query, or Null before any query.
func (db *DB) QueryResult() value.Value {
	if !db.queried {
		return value.Null()
	}
	return value.Seq(db.last...)
}

func (db *DB) FirstRow() (value.Value, error) {
	if len(db.last) == 0 {
		return value.Value{}, verify.Failf("%v", ErrNoResults)
	}
	return db.last[0], nil
}

// Identifier quotes a table or column name. Dotted names are split so
// schema.table becomes "schema"."table". Unquoted parts fold to lower case
// the way PostgreSQL folds bare names, so Film finds a table created as
// film; a part written in double quotes keeps its case.
func Identifier(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty identifier", compare.ErrUsage)
	}
	parts, err := splitIdentifier(name)
	if err != nil {
		return "", err
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

func splitIdentifier(name string) ([]string, error) {
	var (
		parts  []string
		part   strings.Builder
		quoted bool // current part was written in double quotes
		inside bool // scanning between double quotes
	)
	flush := func() error {
		if part.Len() == 0 {
			return fmt.Errorf("%w: invalid identifier %q", compare.ErrUsage, name)
		}
		p := part.String()
		if !quoted {
			p = strings.ToLower(p)
		}
		parts = append(parts, p)
		part.Reset()
		quoted = false
		return nil
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case inside && c == '"' && i+1 < len(name) && name[i+1] == '"':
			part.WriteByte('"')
			i++
		case inside && c == '"':
			inside = false
		case inside:
			part.WriteByte(c)
		case c == '"' && part.Len() == 0 && !quoted:
			inside, quoted = true, true
		case c == '.':
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			part.WriteByte(c)
		}
	}
	if inside {
		return nil, fmt.Errorf("%w: unterminated quote in identifier %q", compare.ErrUsage, name)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return parts, nil
}

// BindArg converts a keyword argument into a query parameter.
func BindArg(v value.Value) any {
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindBool:
		return v.Bool()
	case value.KindNumber:
		if i, ok := v.Int64(); ok {
			return i
		}
		if f, ok := v.Float64(); ok {
			return f
		}
		return v.Number().String()
	case value.KindText:
		return v.Text()
	default:
		return v.String()
	}
}
