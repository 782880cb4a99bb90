package openalex

import "strconv"

const (
	defaultYear  = "1970"
	unknownField = "Unknown"
)

// Paper is one row of the paper table.
type Paper struct {
	Title           string
	Abstract        string
	PublicationDate string
	CitationCount   int
	FieldOfResearch string
}

type worksPage struct {
	Meta struct {
		NextCursor *string `json:"next_cursor"`
	} `json:"meta"`
	Results []Work `json:"results"`
}

// Work is the subset of an OpenAlex work record that ingestion uses.
type Work struct {
	Title                 *string          `json:"title"`
	PublicationYear       *int             `json:"publication_year"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	PrimaryTopic          *struct {
		DisplayName *string `json:"display_name"`
	} `json:"primary_topic"`
}

// Paper converts the work to a paper row. The publication date is the
// publication year only.
func (w Work) Paper() Paper {
	p := Paper{
		Abstract:        ReconstructAbstract(w.AbstractInvertedIndex),
		PublicationDate: defaultYear,
		CitationCount:   w.CitedByCount,
		FieldOfResearch: unknownField,
	}
	if w.Title != nil {
		p.Title = *w.Title
	}
	if w.PublicationYear != nil {
		p.PublicationDate = strconv.Itoa(*w.PublicationYear)
	}
	if w.PrimaryTopic != nil && w.PrimaryTopic.DisplayName != nil {
		p.FieldOfResearch = *w.PrimaryTopic.DisplayName
	}
	return p
}
