package models

import (
	"encoding/json"
	"fmt"
)

// Trends maps a sub-topic to publication date to document count.
type Trends map[string]map[string]int

// Velocity maps a sub-topic to its per-year counts, ascending by year.
type Velocity map[string][]VelocityPoint

// VelocityPoint is one year of a sub-topic's velocity series. It is encoded on
// the wire as a [year, count, delta] array.
type VelocityPoint struct {
	Year  string
	Count int
	Delta int
}

// MarshalJSON encodes the point as [year, count, delta].
func (p VelocityPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.Year, p.Count, p.Delta})
}

// UnmarshalJSON decodes a [year, count, delta] array.
func (p *VelocityPoint) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("velocity point: expected 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Year); err != nil {
		return fmt.Errorf("velocity point year: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Count); err != nil {
		return fmt.Errorf("velocity point count: %w", err)
	}
	if err := json.Unmarshal(raw[2], &p.Delta); err != nil {
		return fmt.Errorf("velocity point delta: %w", err)
	}
	return nil
}

// SearchResponse is the result of a search. Error is set for failures and for
// the empty-result case; Documents, Trends and Velocity are then empty, never nil.
type SearchResponse struct {
	Documents []*SearchHit `json:"documents"`
	Trends    Trends       `json:"trends"`
	Velocity  Velocity     `json:"velocity"`
	Error     string       `json:"error,omitempty"`
	QueryTime int64        `json:"query_time_ms"`
}

// NewErrorResponse returns an empty response carrying message.
func NewErrorResponse(message string) *SearchResponse {
	return &SearchResponse{
		Documents: []*SearchHit{},
		Trends:    Trends{},
		Velocity:  Velocity{},
		Error:     message,
	}
}
