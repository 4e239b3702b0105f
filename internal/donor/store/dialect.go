package store

import (
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/donor/models"
)

// Dialect captures the few places PostgreSQL and SQLite disagree. Queries are
// written with PostgreSQL $n placeholders, each used once in ascending order.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Rebind rewrites $n placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if d != DialectSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && isDigit(query[i+1]) {
			b.WriteByte('?')
			for i+1 < len(query) && isDigit(query[i+1]) {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// lockClause is appended to row reads made inside a transaction.
func (d Dialect) lockClause() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	// SQLite serialises writers at the database level.
	return ""
}

// dateArg renders a calendar date as a query argument.
func (d Dialect) dateArg(t time.Time) any {
	if d == DialectSQLite {
		return models.FormatDate(t)
	}
	return models.DateOf(t)
}

func (d Dialect) idColumn() string {
	if d == DialectSQLite {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "BIGSERIAL PRIMARY KEY"
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// parseDateValue accepts what drivers hand back for a DATE column: time.Time
// from lib/pq and pgx, text from SQLite.
func parseDateValue(v any) (*time.Time, error) {
	var s string
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		day := models.DateOf(val)
		return &day, nil
	case string:
		s = val
	case []byte:
		s = string(val)
	default:
		return nil, fmt.Errorf("unsupported date value of type %T", v)
	}
	if len(s) >= len(models.DateLayout) {
		if t, err := time.Parse(models.DateLayout, s[:len(models.DateLayout)]); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unsupported date value %q", s)
}
