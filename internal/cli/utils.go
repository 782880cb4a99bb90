// Package cli provides output helpers for the trendlens command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/trendlens/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the same JSON the HTTP API returns.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	writeSearchResultsText(w, response)
	return nil
}

// WriteCollections writes collection names to w in the given format.
func WriteCollections(w io.Writer, names []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string][]string{"collections": names})
	}
	if len(names) == 0 {
		fmt.Fprintln(w, "No collections.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	if response.Error != "" {
		fmt.Fprintf(w, "\n%s\n", response.Error)
		return
	}
	fmt.Fprintf(w, "\nFound %d documents in %d sub-topics (%dms)\n\n",
		len(response.Documents), len(response.Trends), response.QueryTime)

	byTopic := make(map[string][]*models.SearchHit)
	for _, d := range response.Documents {
		byTopic[d.SubTopic] = append(byTopic[d.SubTopic], d)
	}
	for _, topic := range sortedTopics(byTopic) {
		hits := byTopic[topic]
		fmt.Fprintf(w, "=== %s (%d) ===\n", topic, len(hits))
		for _, h := range hits {
			writeOneHit(w, h)
		}
		if points := response.Velocity[topic]; len(points) > 0 {
			fmt.Fprint(w, "Velocity:")
			for _, p := range points {
				fmt.Fprintf(w, " %s:%d(%+d)", p.Year, p.Count, p.Delta)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}
}

func writeOneHit(w io.Writer, h *models.SearchHit) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[%s] %s\n", h.DocType, h.Title)
	fmt.Fprintf(w, "ID: %s | Date: %s | Citations: %d", h.ID, h.PubDate, h.CitationCount)
	if h.FieldOfResearch != "" {
		fmt.Fprintf(w, " | Field: %s", h.FieldOfResearch)
	}
	fmt.Fprintln(w)
	if h.Abstract != "" {
		fmt.Fprintf(w, "%s\n", Truncate(h.Abstract, 200))
	}
}

func sortedTopics(byTopic map[string][]*models.SearchHit) []string {
	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		a, b := len(byTopic[topics[i]]), len(byTopic[topics[j]])
		if a != b {
			return a > b
		}
		return topics[i] < topics[j]
	})
	return topics
}

// Truncate shortens s to at most maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
