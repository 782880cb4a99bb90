package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/hyperjump/trendlens/internal/config"
	"github.com/hyperjump/trendlens/internal/embedding"
	"github.com/hyperjump/trendlens/internal/ingest"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/search"
	"github.com/hyperjump/trendlens/internal/server"
	"github.com/hyperjump/trendlens/internal/vector"
)

type harness struct {
	corpus *Corpus
	srv    *httptest.Server
}

// newHarness ingests the corpus into an on-disk SQLite index, reopens it the
// way the server would, and serves the HTTP API.
func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	corpus := BuildCorpus(6)
	patents, papers, err := WriteSources(dir, corpus)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Vector:    config.VectorConfig{Type: "sqlite", DatabasePath: filepath.Join(dir, "vectors.db")},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 16, CacheSize: 256},
	}
	config.ApplyDefaults(cfg)
	ctx := context.Background()

	emb, err := embedding.New(cfg.Embedding, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = emb.Close() })

	index, err := vector.NewIndex(ctx, cfg.Vector)
	if err != nil {
		t.Fatal(err)
	}
	report, err := ingest.NewIngester(index, emb, cfg.Vector.Collection, ingest.WithBatchSize(10)).Rebuild(ctx, patents, papers)
	if err != nil {
		t.Fatal(err)
	}
	if report.Documents != corpus.Total() {
		t.Fatalf("ingested %d documents, want %d", report.Documents, corpus.Total())
	}
	if err := index.Close(); err != nil {
		t.Fatal(err)
	}

	index, err = vector.NewIndex(ctx, cfg.Vector)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = index.Close() })
	svc := search.NewService(index, emb, nil, cfg.Search, cfg.Vector.Collection, nil)
	if err := svc.CheckReady(ctx); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(server.NewServer(svc, &cfg.Server, nil).Handler())
	t.Cleanup(srv.Close)
	return &harness{corpus: corpus, srv: srv}
}

func (h *harness) search(t *testing.T, req models.SearchRequest) *models.SearchResponse {
	t.Helper()
	body, _ := json.Marshal(req)
	resp, err := http.Post(h.srv.URL+"/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d for %+v", resp.StatusCode, req)
	}
	var out models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return &out
}

func requestFor(tc QueryTestCase) models.SearchRequest {
	req := models.SearchRequest{
		Text:            tc.Text,
		DocType:         tc.DocType,
		CitationMin:     tc.MinCitations,
		FieldOfResearch: tc.Field,
	}
	if tc.From != "" {
		req.DateRange = []string{tc.From, tc.To}
	}
	return req
}

func TestE2E_FiltersHold(t *testing.T) {
	h := newHarness(t)
	for _, tc := range h.corpus.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			resp := h.search(t, requestFor(tc))
			if resp.Error != "" {
				t.Fatalf("%q: unexpected error %q", tc.Text, resp.Error)
			}
			if len(resp.Documents) == 0 || len(resp.Documents) > 50 {
				t.Fatalf("%q: got %d documents", tc.Text, len(resp.Documents))
			}
			for _, d := range resp.Documents {
				if tc.DocType != "" && d.DocType != tc.DocType {
					t.Errorf("%s: doc_type %s, want %s", d.ID, d.DocType, tc.DocType)
				}
				if tc.From != "" && (d.PubDate < tc.From || d.PubDate > tc.To) {
					t.Errorf("%s: pub_date %s outside [%s, %s]", d.ID, d.PubDate, tc.From, tc.To)
				}
				if d.CitationCount < tc.MinCitations {
					t.Errorf("%s: citation_count %d < %d", d.ID, d.CitationCount, tc.MinCitations)
				}
				if tc.Field != "" && !strings.Contains(d.FieldOfResearch, tc.Field) {
					t.Errorf("%s: field %q does not contain %q", d.ID, d.FieldOfResearch, tc.Field)
				}
			}
			checkAggregates(t, resp)
		})
	}
}

// checkAggregates verifies trends count every hit once and velocity is
// consistent with trends.
func checkAggregates(t *testing.T, resp *models.SearchResponse) {
	t.Helper()
	want := models.Trends{}
	for _, d := range resp.Documents {
		if d.SubTopic == "" {
			t.Errorf("%s has no sub_topic", d.ID)
		}
		if want[d.SubTopic] == nil {
			want[d.SubTopic] = map[string]int{}
		}
		want[d.SubTopic][d.PubDate]++
	}
	if !reflect.DeepEqual(want, resp.Trends) {
		t.Errorf("trends = %v, want %v", resp.Trends, want)
	}
	for topic, points := range resp.Velocity {
		years := make([]string, len(points))
		byYear := map[string]int{}
		for i, p := range points {
			years[i] = p.Year
			byYear[p.Year] = p.Count
		}
		if !sort.StringsAreSorted(years) {
			t.Errorf("%s: years not ascending: %v", topic, years)
		}
		for _, p := range points {
			y, _ := strconv.Atoi(p.Year)
			if p.Delta != p.Count-byYear[strconv.Itoa(y-1)] {
				t.Errorf("%s %s: delta %d inconsistent", topic, p.Year, p.Delta)
			}
		}
	}
}

func TestE2E_Deterministic(t *testing.T) {
	h := newHarness(t)
	req := models.SearchRequest{Text: "battery electrode"}
	first := h.search(t, req)
	second := h.search(t, req)
	if len(first.Documents) != len(second.Documents) {
		t.Fatalf("document counts differ: %d vs %d", len(first.Documents), len(second.Documents))
	}
	for i := range first.Documents {
		a, b := first.Documents[i], second.Documents[i]
		if a.ID != b.ID || a.SubTopic != b.SubTopic {
			t.Errorf("position %d: %s/%s vs %s/%s", i, a.ID, a.SubTopic, b.ID, b.SubTopic)
		}
	}
}

func TestE2E_NoResults(t *testing.T) {
	h := newHarness(t)
	resp := h.search(t, models.SearchRequest{Text: "battery", CitationMin: 10000})
	if resp.Error != search.NoResultsMessage {
		t.Errorf("error = %q", resp.Error)
	}
	if len(resp.Documents) != 0 || len(resp.Trends) != 0 || len(resp.Velocity) != 0 {
		t.Errorf("expected empty payload, got %+v", resp)
	}
}

func TestE2E_Collections(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.srv.URL + "/list_collections")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got map[string][]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got["collections"], []string{config.DefaultCollection}) {
		t.Errorf("collections = %v", got)
	}

	resp, err = http.Get(h.srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st search.Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Documents != h.corpus.Total() || st.IndexType != "sqlite" {
		t.Errorf("status = %+v", st)
	}
}
