package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	// Name identifies the dialect in logs.
	Name string

	// MoneyType is the column type used for decimal amounts.
	MoneyType string

	// LockRow is appended to a single-row SELECT inside a transaction.
	LockRow string

	// Numbered switches "?" placeholders to "$1", "$2", ...
	Numbered bool
}

var (
	// SQLite stores money as TEXT so decimals round-trip exactly.
	// Writers are serialised by the single connection, so rows need no lock clause.
	SQLite = Dialect{Name: "sqlite", MoneyType: "TEXT"}

	// Postgres stores money as NUMERIC and locks participant rows with FOR UPDATE.
	Postgres = Dialect{Name: "postgres", MoneyType: "NUMERIC(20, 2)", LockRow: " FOR UPDATE", Numbered: true}
)

// Rebind rewrites "?" placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
