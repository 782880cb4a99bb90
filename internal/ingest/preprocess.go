package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hyperjump/trendlens/internal/models"
)

const (
	// FallbackDate is used for dates that cannot be parsed.
	FallbackDate = "1970-01-01"
	// UnknownField is the field of research for blank or non-text values.
	UnknownField = "Unknown"
)

// Source columns read by Preprocess. Missing columns fall back to defaults.
var (
	PatentColumns = []string{"patent_id", "patent_title", "patent_abstract", "patent_date", "citation_count", "field_of_research"}
	PaperColumns  = []string{"title", "abstract", "publication_date", "citation_count", "field_of_research"}
)

// MissingColumns returns the entries of want that t's header lacks.
// A nil table lacks nothing.
func MissingColumns(t *Table, want []string) []string {
	if t == nil {
		return nil
	}
	var missing []string
	for _, c := range want {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// FieldRule maps any field containing Keyword (case-insensitive) to Category.
type FieldRule struct {
	Keyword  string
	Category string
}

// FieldRules is evaluated in order; the first matching rule wins.
var FieldRules = []FieldRule{
	{"machine learning", "Computer Science"},
	{"neural network", "Computer Science"},
	{"artificial intelligence", "Computer Science"},
	{"data classification", "Computer Science"},
	{"deep learning", "Computer Science"},
	{"advanced neural network", "Computer Science"},
	{"natural language processing", "Computer Science"},
	{"computational physics", "Physics"},
	{"bioinformatics", "Biology"},
	{"genetics", "Biology"},
	{"scheduling", "Operations Research"},
	{"optimization", "Operations Research"},
}

// StandardizeField maps a free-text research field to a coarse category.
// Unmatched strings pass through unchanged; blank or non-string values
// become "Unknown".
func StandardizeField(v any) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return UnknownField
	}
	lower := strings.ToLower(s)
	for _, r := range FieldRules {
		if strings.Contains(lower, r.Keyword) {
			return r.Category
		}
	}
	return s
}

// NormalizeDate converts v to an ISO YYYY-MM-DD date. It accepts DD-MM-YYYY,
// a bare four-digit year, an ISO date, integer years and time values.
// Anything else yields 1970-01-01.
func NormalizeDate(v any) string {
	switch d := v.(type) {
	case string:
		return normalizeDateString(d)
	case int:
		return normalizeDateString(strconv.Itoa(d))
	case int64:
		return normalizeDateString(strconv.FormatInt(d, 10))
	case float64:
		if d == math.Trunc(d) && !math.IsInf(d, 0) {
			return normalizeDateString(strconv.FormatInt(int64(d), 10))
		}
	case time.Time:
		if !d.IsZero() {
			return d.Format(time.DateOnly)
		}
	}
	return FallbackDate
}

func normalizeDateString(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2-1-2006", s); err == nil {
		return t.Format(time.DateOnly)
	}
	if len(s) == 4 && isDigits(s) {
		return s + "-01-01"
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly)
	}
	return FallbackDate
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseCitations parses a citation count. Blank, non-numeric and negative
// values yield 0; fractional values are truncated.
func ParseCitations(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// CleanText trims text and collapses runs of whitespace to single spaces.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// EmbeddingText is the text embedded for a document.
func EmbeddingText(doc *models.Document) string {
	return doc.Title + ". " + doc.Abstract
}

// Preprocess converts patent and paper tables into documents. Patents come
// first, then papers. Every returned document has a unique non-empty ID.
// Either table may be nil.
func Preprocess(patents, papers *Table) []*models.Document {
	var docs []*models.Document
	if patents != nil {
		for _, row := range patents.Rows {
			docs = append(docs, patentDocument(row))
		}
	}
	if papers != nil {
		for i, row := range papers.Rows {
			docs = append(docs, paperDocument(row, i))
		}
	}
	assignIDs(docs)
	return docs
}

func patentDocument(row Row) *models.Document {
	return &models.Document{
		ID:              strings.TrimSpace(row["patent_id"]),
		Title:           CleanText(row["patent_title"]),
		Abstract:        CleanText(row["patent_abstract"]),
		DocType:         models.DocTypePatent,
		PubDate:         NormalizeDate(row["patent_date"]),
		CitationCount:   ParseCitations(row["citation_count"]),
		FieldOfResearch: fieldOf(row),
	}
}

func paperDocument(row Row, i int) *models.Document {
	return &models.Document{
		ID:              fmt.Sprintf("paper_%d", i),
		Title:           CleanText(row["title"]),
		Abstract:        CleanText(row["abstract"]),
		DocType:         models.DocTypePaper,
		PubDate:         NormalizeDate(row["publication_date"]),
		CitationCount:   ParseCitations(row["citation_count"]),
		FieldOfResearch: fieldOf(row),
	}
}

func fieldOf(row Row) string {
	v, ok := row.Get("field_of_research")
	if !ok {
		return UnknownField
	}
	return StandardizeField(v)
}

// assignIDs gives blank IDs a doc_<position> id and suffixes duplicates
// with _<n> until every ID is unique. Suffixed IDs never take an ID that
// another document already carries.
func assignIDs(docs []*models.Document) {
	original := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			d.ID = fmt.Sprintf("doc_%d", i)
		}
		original[d.ID] = struct{}{}
	}
	used := make(map[string]bool, len(docs))
	for _, d := range docs {
		if !used[d.ID] {
			used[d.ID] = true
			continue
		}
		base := d.ID
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s_%d", base, n)
			if _, taken := original[candidate]; taken || used[candidate] {
				continue
			}
			d.ID = candidate
			used[candidate] = true
			break
		}
	}
}
