package ingest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/trendlens/internal/models"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"15-03-2020", "2020-03-15"},
		{"5-1-2019", "2019-01-05"},
		{"1998", "1998-01-01"},
		{" 2021 ", "2021-01-01"},
		{"2020-07-04", "2020-07-04"},
		{"garbage", FallbackDate},
		{"", FallbackDate},
		{"31-02-2020", FallbackDate},
		{"2020-13-01", FallbackDate},
		{"98", FallbackDate},
		{2015, "2015-01-01"},
		{int64(2016), "2016-01-01"},
		{2017.0, "2017-01-01"},
		{2017.5, FallbackDate},
		{math.NaN(), FallbackDate},
		{time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC), "2001-02-03"},
		{nil, FallbackDate},
		{[]string{"x"}, FallbackDate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDate(tt.in), "NormalizeDate(%#v)", tt.in)
	}
}

func TestNormalizeDate_alwaysISO(t *testing.T) {
	for _, in := range []string{"??", "1-1-1", "0000", "12/03/2020", "2020-1-1", "\x00"} {
		out := NormalizeDate(in)
		_, err := time.Parse(time.DateOnly, out)
		assert.NoError(t, err, "NormalizeDate(%q) = %q", in, out)
	}
}

func TestStandardizeField(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"Advanced Neural Network Design", "Computer Science"},
		{"MACHINE LEARNING", "Computer Science"},
		{"Computational Physics", "Physics"},
		{"Population genetics", "Biology"},
		{"Job scheduling", "Operations Research"},
		{"Medieval History", "Medieval History"},
		{"", "Unknown"},
		{"   ", "Unknown"},
		{nil, "Unknown"},
		{42, "Unknown"},
		// first rule wins when several keywords match
		{"bioinformatics and machine learning", "Computer Science"},
		{"optimization for genetics", "Biology"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StandardizeField(tt.in), "StandardizeField(%#v)", tt.in)
	}
}

func TestParseCitations(t *testing.T) {
	assert.Equal(t, 12, ParseCitations("12"))
	assert.Equal(t, 12, ParseCitations(" 12.0 "))
	assert.Equal(t, 0, ParseCitations("-3"))
	assert.Equal(t, 0, ParseCitations(""))
	assert.Equal(t, 0, ParseCitations("many"))
	assert.Equal(t, 0, ParseCitations("NaN"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a \n\t b   c  "))
	assert.Equal(t, "", CleanText("   "))
}

func TestPreprocess(t *testing.T) {
	patents := &Table{
		Columns: []string{"patent_id", "patent_title", "patent_abstract", "patent_date"},
		Rows: []Row{
			{"patent_id": "US1", "patent_title": "Battery", "patent_abstract": "A  cell.", "patent_date": "15-03-2020"},
			{"patent_id": "", "patent_title": "Anon", "patent_abstract": "", "patent_date": "bad"},
			{"patent_id": "US1", "patent_title": "Dup", "patent_abstract": "", "patent_date": "2019"},
		},
	}
	papers := &Table{
		Columns: []string{"title", "abstract", "publication_date", "citation_count", "field_of_research"},
		Rows: []Row{
			{"title": "Deep nets", "abstract": "We train.", "publication_date": "2021", "citation_count": "7", "field_of_research": "deep learning"},
			{"title": "Genes", "abstract": "Sequencing.", "publication_date": "2020-05-01", "citation_count": "-1", "field_of_research": ""},
		},
	}
	docs := Preprocess(patents, papers)
	require.Len(t, docs, 5)

	assert.Equal(t, "US1", docs[0].ID)
	assert.Equal(t, models.DocTypePatent, docs[0].DocType)
	assert.Equal(t, "2020-03-15", docs[0].PubDate)
	assert.Equal(t, "A cell.", docs[0].Abstract)
	assert.Equal(t, 0, docs[0].CitationCount)
	assert.Equal(t, "Unknown", docs[0].FieldOfResearch)

	assert.Equal(t, "doc_1", docs[1].ID)
	assert.Equal(t, FallbackDate, docs[1].PubDate)
	assert.Equal(t, "US1_1", docs[2].ID)

	assert.Equal(t, "paper_0", docs[3].ID)
	assert.Equal(t, models.DocTypePaper, docs[3].DocType)
	assert.Equal(t, "2021-01-01", docs[3].PubDate)
	assert.Equal(t, 7, docs[3].CitationCount)
	assert.Equal(t, "Computer Science", docs[3].FieldOfResearch)

	assert.Equal(t, "paper_1", docs[4].ID)
	assert.Equal(t, 0, docs[4].CitationCount)
	assert.Equal(t, "Unknown", docs[4].FieldOfResearch)
}

func TestPreprocess_idsUniqueWithCollisions(t *testing.T) {
	patents := &Table{Rows: []Row{
		{"patent_id": "paper_0"},
		{"patent_id": "x"},
		{"patent_id": "x"},
		{"patent_id": "x_1"},
		{"patent_id": "doc_5"},
		{"patent_id": ""},
	}}
	papers := &Table{Rows: []Row{{"title": "t"}}}
	docs := Preprocess(patents, papers)
	seen := map[string]bool{}
	for _, d := range docs {
		require.NotEmpty(t, d.ID)
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
	}
	assert.Equal(t, "x_1", docs[3].ID, "original ids are never renamed in favour of suffixes")
	assert.True(t, strings.HasPrefix(docs[2].ID, "x_"))
}

func TestPreprocess_nilTables(t *testing.T) {
	assert.Empty(t, Preprocess(nil, nil))
	docs := Preprocess(nil, &Table{Rows: []Row{{"title": "only"}}})
	require.Len(t, docs, 1)
	assert.Equal(t, "paper_0", docs[0].ID)
}

func TestEmbeddingText(t *testing.T) {
	assert.Equal(t, "Title. Abstract", EmbeddingText(&models.Document{Title: "Title", Abstract: "Abstract"}))
	assert.Equal(t, ". ", EmbeddingText(&models.Document{}))
}

func TestMissingColumns(t *testing.T) {
	papers := &Table{Columns: []string{"title", "abstract", "publication_date"}}
	assert.Equal(t, []string{"citation_count", "field_of_research"}, MissingColumns(papers, PaperColumns))
	full := &Table{Columns: append([]string{"extra"}, PatentColumns...)}
	assert.Empty(t, MissingColumns(full, PatentColumns))
	assert.Nil(t, MissingColumns(nil, PatentColumns))
}
