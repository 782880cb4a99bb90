// Package models defines core data structures for documents, search requests, and responses.
package models

// Document types stored in the index.
const (
	DocTypePatent = "patent"
	DocTypePaper  = "paper"
)

// Document is a patent or paper record as stored in the vector index.
// Records are created once at ingestion and never mutated afterwards.
type Document struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Abstract        string    `json:"abstract"`
	DocType         string    `json:"doc_type"`
	PubDate         string    `json:"pub_date"`
	CitationCount   int       `json:"citation_count"`
	FieldOfResearch string    `json:"field_of_research"`
	Vector          []float32 `json:"-"`
}

// SearchHit is a retrieved document labelled with its per-query sub-topic.
type SearchHit struct {
	Document
	SubTopic string `json:"sub_topic"`
}
