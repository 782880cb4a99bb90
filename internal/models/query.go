package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyQuery is returned when a search request has no text.
var ErrEmptyQuery = errors.New("query text cannot be empty")

// DocTypeBoth disables the doc_type filter when sent by clients.
const DocTypeBoth = "both"

// SearchRequest is a free-text query with optional, conjunctive filters.
type SearchRequest struct {
	Text    string `json:"text"`
	DocType string `json:"doc_type,omitempty"`
	// DateRange is an inclusive [start, end] pair of ISO dates.
	DateRange []string `json:"date_range,omitempty"`
	// CitationMin applies only when strictly positive.
	CitationMin     int    `json:"citation_min,omitempty"`
	FieldOfResearch string `json:"field_of_research,omitempty"`
}

// UnmarshalJSON decodes a request, accepting citation_min as an integer, an
// integral float such as 10.0 or a numeric string such as "10".
func (r *SearchRequest) UnmarshalJSON(data []byte) error {
	type plain SearchRequest
	aux := struct {
		*plain
		CitationMin json.RawMessage `json:"citation_min"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n, err := parseCitationMin(aux.CitationMin)
	if err != nil {
		return err
	}
	r.CitationMin = n
	return nil
}

func parseCitationMin(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("citation_min: %w", err)
		}
		text = strings.TrimSpace(text)
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("citation_min must be an integer, got %s", raw)
	}
	return int(f), nil
}

// Validate checks that the request carries non-blank text.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// DateBounds returns the date range bounds when both are present and non-empty.
func (r *SearchRequest) DateBounds() (start, end string, ok bool) {
	if len(r.DateRange) != 2 {
		return "", "", false
	}
	start, end = strings.TrimSpace(r.DateRange[0]), strings.TrimSpace(r.DateRange[1])
	if start == "" || end == "" {
		return "", "", false
	}
	return start, end, true
}
