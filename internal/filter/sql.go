package filter

import (
	"fmt"
	"strings"
)

// Dialect adapts SQL rendering to a database's placeholder and string syntax.
type Dialect interface {
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	// Contains returns a boolean SQL expression testing whether column
	// contains the bound value ph as a case-sensitive substring.
	Contains(column, ph string) string
}

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) Contains(column, ph string) string {
	return fmt.Sprintf("instr(%s, %s) > 0", column, ph)
}

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) Contains(column, ph string) string {
	return fmt.Sprintf("strpos(%s, %s) > 0", column, ph)
}

var (
	// SQLite renders "?" placeholders and instr() containment.
	SQLite Dialect = sqliteDialect{}
	// Postgres renders "$n" placeholders and strpos() containment.
	Postgres Dialect = postgresDialect{}
)

// columns whitelists the SQL column for each field; field names never reach
// SQL any other way.
var columns = map[Field]string{
	FieldDocType:         "doc_type",
	FieldPubDate:         "pub_date",
	FieldCitationCount:   "citation_count",
	FieldFieldOfResearch: "field_of_research",
}

// SQL renders the filter as a WHERE fragment joined with AND, plus its bind
// arguments. argOffset is the number of arguments already bound by the
// surrounding query, so the first placeholder is argOffset+1. An empty filter
// renders as "" with no arguments. Values are always bound, never inlined.
func (f Filter) SQL(d Dialect, argOffset int) (string, []any, error) {
	if err := f.Validate(); err != nil {
		return "", nil, err
	}
	parts := make([]string, 0, len(f.preds))
	args := make([]any, 0, len(f.preds)+1)
	next := func(v any) string {
		args = append(args, v)
		return d.Placeholder(argOffset + len(args))
	}
	for _, p := range f.preds {
		col := columns[p.Field]
		switch p.Op {
		case OpEq:
			parts = append(parts, fmt.Sprintf("%s = %s", col, next(p.Value)))
		case OpRange:
			lo := next(p.Value)
			hi := next(p.Upper)
			parts = append(parts, fmt.Sprintf("%s >= %s AND %s <= %s", col, lo, col, hi))
		case OpAtLeast:
			parts = append(parts, fmt.Sprintf("%s >= %s", col, next(p.Threshold)))
		case OpContains:
			parts = append(parts, d.Contains(col, next(p.Value)))
		default:
			return "", nil, fmt.Errorf("unsupported operator %d", p.Op)
		}
	}
	return strings.Join(parts, " AND "), args, nil
}
