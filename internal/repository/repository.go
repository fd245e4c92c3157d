package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/progression"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// classify maps driver unique violations onto ErrDuplicate.
func classify(q database.Querier, err error) error {
	if err != nil && q.GetDialect().IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func nullDate(p *time.Time) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: progression.FormatDate(*p), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// datePtr parses a stored calendar day. Unparseable values read as absent.
func datePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d, err := progression.ParseDate(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

// limitClause renders a LIMIT for positive n and nothing otherwise.
func limitClause(n int) (string, []interface{}) {
	if n <= 0 {
		return "", nil
	}
	return " LIMIT ?", []interface{}{n}
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
