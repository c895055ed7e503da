package db

import (
	"strconv"
	"strings"
)

// Dialect adapts `?`-placeholder statements to the bind syntax of a driver.
type Dialect struct {
	Driver   string
	numbered bool
}

func DialectFor(driver string) Dialect {
	return Dialect{Driver: driver, numbered: driver == "postgres"}
}

// Rebind rewrites `?` placeholders to `$1, $2, ...` for drivers that need numbered binds.
// Placeholders inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
