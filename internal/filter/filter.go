// Package filter builds conjunctive metadata filters for vector search and
// renders them into backend query languages with escaped or bound values.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/trendlens/internal/models"
)

// Field is a filterable metadata column. Only the constants below are valid.
type Field string

const (
	FieldDocType         Field = "doc_type"
	FieldPubDate         Field = "pub_date"
	FieldCitationCount   Field = "citation_count"
	FieldFieldOfResearch Field = "field_of_research"
)

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	switch f {
	case FieldDocType, FieldPubDate, FieldCitationCount, FieldFieldOfResearch:
		return true
	}
	return false
}

// Op is the kind of comparison a predicate performs.
type Op int

const (
	// OpEq is string equality.
	OpEq Op = iota
	// OpRange is an inclusive lexicographic range.
	OpRange
	// OpAtLeast is an integer lower bound.
	OpAtLeast
	// OpContains is case-sensitive substring containment.
	OpContains
)

// Predicate is a single typed comparison on one field.
type Predicate struct {
	Field     Field
	Op        Op
	Value     string
	Upper     string
	Threshold int
}

// Eq matches documents whose field equals value.
func Eq(field Field, value string) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Range matches documents whose field lies in [lo, hi], compared as strings.
func Range(field Field, lo, hi string) Predicate {
	return Predicate{Field: field, Op: OpRange, Value: lo, Upper: hi}
}

// AtLeast matches documents whose integer field is >= threshold.
func AtLeast(field Field, threshold int) Predicate {
	return Predicate{Field: field, Op: OpAtLeast, Threshold: threshold}
}

// Contains matches documents whose field contains substr.
func Contains(field Field, substr string) Predicate {
	return Predicate{Field: field, Op: OpContains, Value: substr}
}

// Filter is a conjunction of predicates. The zero value matches everything.
type Filter struct {
	preds []Predicate
}

// New returns a filter made of preds.
func New(preds ...Predicate) Filter {
	return Filter{preds: append([]Predicate(nil), preds...)}
}

// And returns a copy of f with p appended.
func (f Filter) And(p Predicate) Filter {
	preds := make([]Predicate, 0, len(f.preds)+1)
	preds = append(preds, f.preds...)
	return Filter{preds: append(preds, p)}
}

// Predicates returns a copy of the filter's predicates.
func (f Filter) Predicates() []Predicate {
	return append([]Predicate(nil), f.preds...)
}

// Empty reports whether the filter has no predicates.
func (f Filter) Empty() bool {
	return len(f.preds) == 0
}

// Validate returns an error if any predicate references an unknown field or
// applies an operator to a field of the wrong type.
func (f Filter) Validate() error {
	for _, p := range f.preds {
		if !p.Field.Valid() {
			return fmt.Errorf("unknown filter field %q", string(p.Field))
		}
		numeric := p.Field == FieldCitationCount
		if numeric != (p.Op == OpAtLeast) {
			return fmt.Errorf("operator not supported on field %s", p.Field)
		}
	}
	return nil
}

// FromRequest builds the filter for a search request. Absent or inert fields
// contribute nothing: doc_type "both", a partial date range and a citation
// minimum that is not strictly positive are ignored.
func FromRequest(req *models.SearchRequest) Filter {
	var f Filter
	if req == nil {
		return f
	}
	if dt := strings.TrimSpace(req.DocType); dt != "" && dt != models.DocTypeBoth {
		f = f.And(Eq(FieldDocType, dt))
	}
	if start, end, ok := req.DateBounds(); ok {
		f = f.And(Range(FieldPubDate, start, end))
	}
	if req.CitationMin > 0 {
		f = f.And(AtLeast(FieldCitationCount, req.CitationMin))
	}
	if fr := req.FieldOfResearch; strings.TrimSpace(fr) != "" {
		f = f.And(Contains(FieldFieldOfResearch, fr))
	}
	return f
}

// Match evaluates the filter against doc in process.
func (f Filter) Match(doc *models.Document) bool {
	for _, p := range f.preds {
		if !p.match(doc) {
			return false
		}
	}
	return true
}

func (p Predicate) match(doc *models.Document) bool {
	if p.Op == OpAtLeast {
		if p.Field != FieldCitationCount {
			return false
		}
		return doc.CitationCount >= p.Threshold
	}
	v, ok := stringField(doc, p.Field)
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return v == p.Value
	case OpRange:
		return v >= p.Value && v <= p.Upper
	case OpContains:
		return strings.Contains(v, p.Value)
	}
	return false
}

func stringField(doc *models.Document, f Field) (string, bool) {
	switch f {
	case FieldDocType:
		return doc.DocType, true
	case FieldPubDate:
		return doc.PubDate, true
	case FieldFieldOfResearch:
		return doc.FieldOfResearch, true
	}
	return "", false
}

// Expr renders the filter as a boolean expression in the style of vector
// database filter languages, e.g. `doc_type == "paper" and citation_count >= 10`.
// String literals are double-quoted with backslash escapes; LIKE wildcards in
// substring values are escaped. An empty filter renders as "".
func (f Filter) Expr() string {
	parts := make([]string, 0, len(f.preds))
	for _, p := range f.preds {
		if !p.Field.Valid() {
			continue
		}
		name := string(p.Field)
		switch p.Op {
		case OpEq:
			parts = append(parts, fmt.Sprintf("%s == %s", name, quote(p.Value)))
		case OpRange:
			parts = append(parts, fmt.Sprintf("%s >= %s and %s <= %s", name, quote(p.Value), name, quote(p.Upper)))
		case OpAtLeast:
			parts = append(parts, fmt.Sprintf("%s >= %d", name, p.Threshold))
		case OpContains:
			parts = append(parts, fmt.Sprintf("%s like %s", name, quote("%"+escapeLike(p.Value)+"%")))
		}
	}
	return strings.Join(parts, " and ")
}

// String returns Expr, or "<none>" for an empty filter.
func (f Filter) String() string {
	if f.Empty() {
		return "<none>"
	}
	return f.Expr()
}

func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u` + leftPad(strconv.FormatInt(int64(r), 16), 4))
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}
