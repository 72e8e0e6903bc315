// Package sqlstore implements the store repositories once over database/sql.
// Drivers supply a Dialect covering what differs between engines.
package sqlstore

import (
	"strconv"
	"strings"
	"time"
)

// Dialect captures the engine specific parts of the repositories.
type Dialect interface {
	// Name is the engine name used in logs and errors.
	Name() string

	// Rebind converts ? placeholders to the engine's syntax.
	Rebind(query string) string

	// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
	// constraint failure.
	IsUniqueViolation(err error) bool

	// Time converts t to a driver argument for a timestamp column.
	Time(t time.Time) any
}

// RebindDollar rewrites ? placeholders to $1, $2, ... It assumes queries
// carry no literal question marks.
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// TextTimeLayout is the fixed width UTC layout used where time is stored as
// TEXT. Fixed width keeps lexical and chronological order the same.
const TextTimeLayout = "2006-01-02 15:04:05.000000000-07:00"

// FormatTextTime renders t in TextTimeLayout.
func FormatTextTime(t time.Time) string {
	return t.UTC().Format(TextTimeLayout)
}
