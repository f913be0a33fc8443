package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/AbhinavRai30/api-framework/internal/value"
)

func collectRows(rows pgx.Rows) ([]value.Value, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []value.Value
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}

		members := make([]value.Member, 0, len(fields))
		for i, f := range fields {
			var raw any
			if i < len(vals) {
				raw = vals[i]
			}
			members = append(members, value.Pair(f.Name, columnValue(raw)))
		}
		out = append(out, value.Map(members...))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// columnValue converts a decoded PostgreSQL value. Types with no structured
// counterpart fall back to their printed form.
func columnValue(raw any) value.Value {
	switch t := raw.(type) {
	case nil:
		return value.Null()
	case [16]byte:
		return value.Text(uuid.UUID(t).String())
	case pgtype.UUID:
		if !t.Valid {
			return value.Null()
		}
		return value.Text(uuid.UUID(t.Bytes).String())
	case pgtype.Numeric:
		return numericValue(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 && t.Location() == time.UTC {
			return value.Text(t.Format(time.DateOnly))
		}
		return value.Text(t.Format(time.RFC3339Nano))
	}

	v, err := value.FromAny(raw)
	if err != nil {
		return value.Text(fmt.Sprint(raw))
	}
	return v
}

func numericValue(n pgtype.Numeric) value.Value {
	if !n.Valid {
		return value.Null()
	}
	raw, err := n.Value()
	if err != nil {
		return value.Text(fmt.Sprint(n))
	}
	s, ok := raw.(string)
	if !ok {
		return value.Text(fmt.Sprint(raw))
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil || s == "NaN" || s == "Infinity" || s == "-Infinity" {
		return value.Text(s)
	}
	return value.Number(json.Number(s))
}
