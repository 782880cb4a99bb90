package openalex

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/trendlens/internal/ingest"
)

const pageOne = `{
  "meta": {"next_cursor": "c2"},
  "results": [
    {"title": "Graphene anodes", "publication_year": 2021, "cited_by_count": 12,
     "abstract_inverted_index": {"Graphene": [0], "anodes": [1], "work": [2]},
     "primary_topic": {"display_name": "Materials Science"}},
    {"title": null, "publication_year": null, "cited_by_count": 0,
     "abstract_inverted_index": null, "primary_topic": null}
  ]
}`

const pageTwo = `{
  "meta": {"next_cursor": null},
  "results": [
    {"title": "Qubits", "publication_year": 2019, "cited_by_count": 3,
     "abstract_inverted_index": {"quantum": [0, 2], "and": [1]},
     "primary_topic": {}}
  ]
}`

func newWorksServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/works", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, WorksFilter, q.Get("filter"))
		assert.Equal(t, "200", q.Get("per-page"))
		switch q.Get("cursor") {
		case "*":
			fmt.Fprint(w, pageOne)
		case "c2":
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			fmt.Fprint(w, pageTwo)
		default:
			t.Errorf("unexpected cursor %q", q.Get("cursor"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchWorks(t *testing.T) {
	srv, calls := newWorksServer(t, http.StatusOK)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	papers, err := c.FetchWorks(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, papers, 3)
	assert.Equal(t, int32(2), calls.Load(), "paging stops when next_cursor is null")

	assert.Equal(t, Paper{
		Title:           "Graphene anodes",
		Abstract:        "Graphene anodes work",
		PublicationDate: "2021",
		CitationCount:   12,
		FieldOfResearch: "Materials Science",
	}, papers[0])
	assert.Equal(t, Paper{PublicationDate: "1970", FieldOfResearch: "Unknown"}, papers[1])
	assert.Equal(t, "quantum and quantum", papers[2].Abstract)
	assert.Equal(t, "Unknown", papers[2].FieldOfResearch)
}

func TestFetchWorks_limit(t *testing.T) {
	srv, calls := newWorksServer(t, http.StatusOK)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	papers, err := c.FetchWorks(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Graphene anodes", papers[0].Title)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchWorks_errorStatusKeepsFetched(t *testing.T) {
	srv, _ := newWorksServer(t, http.StatusServiceUnavailable)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	papers, err := c.FetchWorks(context.Background(), 100)
	require.ErrorIs(t, err, ErrStatus)
	assert.Len(t, papers, 2)
}

func TestFetchWorks_mailto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ops@example.org", r.URL.Query().Get("mailto"))
		fmt.Fprint(w, `{"meta":{"next_cursor":null},"results":[]}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithMailto("ops@example.org"), WithRateLimit(1000))
	papers, err := c.FetchWorks(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestFetchWorks_canceled(t *testing.T) {
	srv, _ := newWorksServer(t, http.StatusOK)
	c := NewClient(WithBaseURL(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchWorks(ctx, 10)
	assert.Error(t, err)
}

func TestReconstructAbstract(t *testing.T) {
	assert.Equal(t, "", ReconstructAbstract(nil))
	assert.Equal(t, "", ReconstructAbstract(map[string][]int{}))
	assert.Equal(t, "the cat sat on the mat", ReconstructAbstract(map[string][]int{
		"the": {0, 4},
		"cat": {1},
		"sat": {2},
		"on":  {3},
		"mat": {5},
	}))
	assert.Equal(t, "a b", ReconstructAbstract(map[string][]int{"b": {0}, "a": {0}}), "ties order by word")
}

func TestWriteCSV_readableByIngest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "papers.csv")
	papers := []Paper{
		{Title: "Graphene, revisited", Abstract: "a \"quoted\" abstract", PublicationDate: "2021", CitationCount: 7, FieldOfResearch: "Materials Science"},
		{PublicationDate: "1970", FieldOfResearch: "Unknown"},
	}
	require.NoError(t, WriteCSV(path, papers))

	table, err := ingest.ReadTable(path, 0)
	require.NoError(t, err)
	assert.Equal(t, CSVHeader, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Graphene, revisited", table.Rows[0]["title"])
	assert.Equal(t, `a "quoted" abstract`, table.Rows[0]["abstract"])
	assert.Equal(t, "7", table.Rows[0]["citation_count"])
}
