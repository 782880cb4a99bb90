package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestVelocityPoint_JSONArray(t *testing.T) {
	data, err := json.Marshal([]VelocityPoint{{Year: "2020", Count: 3, Delta: 3}, {Year: "2021", Count: 1, Delta: -2}})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `[["2020",3,3],["2021",1,-2]]`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
	var back []VelocityPoint
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[1] != (VelocityPoint{Year: "2021", Count: 1, Delta: -2}) {
		t.Errorf("Unmarshal = %+v", back)
	}
	var bad VelocityPoint
	if err := json.Unmarshal([]byte(`["2020",3]`), &bad); err == nil {
		t.Error("expected error for short array")
	}
}

func TestNewErrorResponse_EmptyCollectionsNotNull(t *testing.T) {
	data, err := json.Marshal(NewErrorResponse("boom"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"documents":[]`, `"trends":{}`, `"velocity":{}`, `"error":"boom"`} {
		if !strings.Contains(s, want) {
			t.Errorf("response %s missing %s", s, want)
		}
	}
}

func TestSearchHit_FlattensDocument(t *testing.T) {
	hit := &SearchHit{
		Document: Document{ID: "p1", Title: "T", DocType: DocTypePaper, PubDate: "2020-01-01", Vector: []float32{1, 2}},
		SubTopic: "graph learning",
	}
	data, err := json.Marshal(hit)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"id":"p1"`) || !strings.Contains(s, `"sub_topic":"graph learning"`) {
		t.Errorf("unexpected hit JSON: %s", s)
	}
	if strings.Contains(s, "vector") {
		t.Errorf("vector must not be serialized: %s", s)
	}
}
