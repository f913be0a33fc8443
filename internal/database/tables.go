package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

// Column checks compare printed forms, so 4.99 matches "4.99" and true
// matches "True".
func columnEqual(actual, expected value.Value) bool {
	return compare.ScalarsEqual(actual, expected, compare.Lenient)
}

func (db *DB) count(ctx context.Context, table, where string, args ...any) (int64, error) {
	ident, err := Identifier(table)
	if err != nil {
		return 0, err
	}

	query := "SELECT COUNT(*) AS count FROM " + ident
	if strings.TrimSpace(where) != "" {
		query += " WHERE " + where
	}

	rows, err := db.ExecuteQuery(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	c, _ := rows[0].Get("count")
	n, ok := c.Int64()
	if !ok {
		return 0, verify.Failf("unexpected count %s from %s", c, ident)
	}
	return n, nil
}

func (db *DB) TableRowShouldExist(ctx context.Context, table, where string) error {
	n, err := db.count(ctx, table, where)
	if err != nil {
		return err
	}
	if n == 0 {
		return verify.Failf("no row found in %s where %s", table, where)
	}
	db.logger.Info("row exists", "table", table, "where", where)
	return nil
}

func (db *DB) TableRowShouldNotExist(ctx context.Context, table, where string) error {
	n, err := db.count(ctx, table, where)
	if err != nil {
		return err
	}
	if n != 0 {
		return verify.Failf("row found in %s where %s", table, where)
	}
	db.logger.Info("row does not exist", "table", table, "where", where)
	return nil
}

// TableRowCountShouldBe counts every row when where is empty.
func (db *DB) TableRowCountShouldBe(ctx context.Context, table string, expected int64, where string) error {
	n, err := db.count(ctx, table, where)
	if err != nil {
		return err
	}
	if n != expected {
		return verify.Failf("expected %d rows, but found %d", expected, n)
	}
	db.logger.Info("row count matches", "table", table, "count", n)
	return nil
}

func (db *DB) TableRowColumnValueShouldBe(ctx context.Context, table, where, column string, expected value.Value) error {
	tbl, err := Identifier(table)
	if err != nil {
		return err
	}
	col, err := Identifier(column)
	if err != nil {
		return err
	}

	rows, err := db.ExecuteQuery(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s", col, tbl, where))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return verify.Failf("no row found in %s where %s", table, where)
	}

	actual := rows[0].Members()[0].Value
	if !columnEqual(actual, expected) {
		return verify.Failf("expected %s = %s, but got %s", column, expected.Render(), actual.Render())
	}
	db.logger.Info("column value matches", "table", table, "column", column, "value", expected.Render())
	return nil
}

// RowByID returns the first row whose idColumn equals id. The id is sent as
// a bind parameter.
func (db *DB) RowByID(ctx context.Context, table, idColumn string, id value.Value) (value.Value, error) {
	tbl, err := Identifier(table)
	if err != nil {
		return value.Value{}, err
	}
	col, err := Identifier(idColumn)
	if err != nil {
		return value.Value{}, err
	}

	rows, err := db.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", tbl, col), BindArg(id))
	if err != nil {
		return value.Value{}, err
	}
	if len(rows) == 0 {
		return value.Value{}, verify.Failf("no row found in %s where %s = %s", table, idColumn, id.Render())
	}
	return rows[0], nil
}

// DeleteTableData deletes the rows matching where, or every row when where
// is empty.
func (db *DB) DeleteTableData(ctx context.Context, table, where string) (int64, error) {
	ident, err := Identifier(table)
	if err != nil {
		return 0, err
	}

	query := "DELETE FROM " + ident
	if strings.TrimSpace(where) != "" {
		query += " WHERE " + where
	} else {
		db.logger.Warn("deleting all rows from table without WHERE clause", "table", table)
	}
	return db.ExecuteUpdate(ctx, query)
}

func (db *DB) TruncateTable(ctx context.Context, table string) error {
	ident, err := Identifier(table)
	if err != nil {
		return err
	}
	if _, err := db.ExecuteUpdate(ctx, "TRUNCATE TABLE "+ident+" CASCADE"); err != nil {
		return fmt.Errorf("truncate table %s: %w", table, err)
	}
	db.logger.Info("table truncated", "table", table)
	return nil
}

// VerifyRecordChange checks that column now holds newValue. oldValue is only
// logged.
func (db *DB) VerifyRecordChange(ctx context.Context, table, idColumn string, id value.Value, column string, oldValue, newValue value.Value) error {
	row, err := db.RowByID(ctx, table, idColumn, id)
	if err != nil {
		return err
	}
	current, ok := row.Get(column)
	if !ok {
		return verify.Failf("column %q not found in %s", column, table)
	}
	if !columnEqual(current, newValue) {
		return verify.Failf("expected %s = %s, but got %s", column, newValue.Render(), current.Render())
	}
	db.logger.Info("record updated",
		"table", table, "id", id.Render(), "column", column,
		"from", oldValue.Render(), "to", newValue.Render())
	return nil
}

func (db *DB) VerifyRecordCreated(ctx context.Context, table, idColumn string, id value.Value) error {
	n, err := db.countByID(ctx, table, idColumn, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return verify.Failf("record not found in %s with %s=%s", table, idColumn, id.Render())
	}
	db.logger.Info("record created", "table", table, "column", idColumn, "id", id.Render())
	return nil
}

func (db *DB) VerifyRecordDeleted(ctx context.Context, table, idColumn string, id value.Value) error {
	n, err := db.countByID(ctx, table, idColumn, id)
	if err != nil {
		return err
	}
	if n != 0 {
		return verify.Failf("record still exists in %s with %s=%s", table, idColumn, id.Render())
	}
	db.logger.Info("record deleted", "table", table, "column", idColumn, "id", id.Render())
	return nil
}

func (db *DB) countByID(ctx context.Context, table, idColumn string, id value.Value) (int64, error) {
	col, err := Identifier(idColumn)
	if err != nil {
		return 0, err
	}
	return db.count(ctx, table, col+" = $1", BindArg(id))
}

// VerifyRowMatchesExpectedData compares every column of expected against the
// first row matching where and reports all differences at once.
func (db *DB) VerifyRowMatchesExpectedData(ctx context.Context, table, where string, expected value.Value) error {
	if expected.Kind() == value.KindText {
		parsed, err := value.ParseJSON([]byte(expected.Text()))
		if err != nil {
			return fmt.Errorf("%w: expected data is not JSON: %v", compare.ErrUsage, err)
		}
		expected = parsed
	}
	if expected.Kind() != value.KindMapping {
		return fmt.Errorf("%w: expected data must be a mapping, got %s", compare.ErrUsage, expected.Kind())
	}

	tbl, err := Identifier(table)
	if err != nil {
		return err
	}
	rows, err := db.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s WHERE %s", tbl, where))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return verify.Failf("no row found in %s where %s", table, where)
	}

	actual := rows[0]
	var problems []string
	for _, m := range expected.Members() {
		got, ok := actual.Get(m.Key)
		if !ok {
			problems = append(problems, fmt.Sprintf("column '%s' not found in database row", m.Key))
			continue
		}
		if !columnEqual(got, m.Value) {
			problems = append(problems, fmt.Sprintf("column '%s': expected '%s', but got '%s'", m.Key, m.Value.Render(), got.Render()))
		}
	}

	if len(problems) > 0 {
		return verify.Failf("database validation failed for %s where %s:\n%s", table, where, strings.Join(problems, "\n"))
	}
	db.logger.Info("all expected values match", "table", table, "where", where, "columns", expected.Len())
	return nil
}
