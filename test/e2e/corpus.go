// Package e2e provides end-to-end tests over a generated patent and paper corpus.
package e2e

import (
	"fmt"
	"strconv"
)

// Patent is one row of the generated patent table.
type Patent struct {
	ID       string
	Title    string
	Abstract string
	// Date is DD-MM-YYYY, the layout patent exports use.
	Date string
}

// Paper is one row of the generated paper table.
type Paper struct {
	Title     string
	Abstract  string
	Year      int
	Citations int
	Field     string
}

// QueryTestCase is a request whose filters must hold for every returned document.
type QueryTestCase struct {
	Text         string
	DocType      string
	From, To     string
	MinCitations int
	Field        string
	Description  string
}

// Corpus holds the source rows and the queries run against them.
type Corpus struct {
	Patents   []Patent
	Papers    []Paper
	TestCases []QueryTestCase
}

// Total returns the number of documents the corpus ingests to.
func (c *Corpus) Total() int {
	return len(c.Patents) + len(c.Papers)
}

type topic struct {
	name     string
	field    string
	abstract string
}

var topics = []topic{
	{"Solid state battery", "materials science", "solid electrolyte lithium battery anode with improved battery capacity"},
	{"Graphene electrode", "materials science", "graphene electrode coating for fast charging battery cells"},
	{"Protein folding", "bioinformatics", "deep learning predicts protein structure and protein folding pathways"},
	{"Gene editing", "genetics", "crispr gene editing of plant genomes with guide rna design"},
	{"Quantum error correction", "computational physics", "surface code quantum error correction for superconducting qubits"},
	{"Transformer language model", "natural language processing", "transformer language model pretraining on large text corpora"},
	{"Job shop scheduling", "scheduling", "heuristic job shop scheduling minimises makespan on parallel machines"},
	{"Wind turbine blade", "", "composite wind turbine blade with reduced fatigue loads"},
}

// BuildCorpus returns patents and papers spread over topics and the years
// 2015 to 2023, plus filter-heavy query cases.
func BuildCorpus(perTopic int) *Corpus {
	c := &Corpus{}
	for ti, t := range topics {
		for i := 0; i < perTopic; i++ {
			year := 2015 + (ti+i)%9
			c.Patents = append(c.Patents, Patent{
				ID:       fmt.Sprintf("US%d%03d", ti+1, i),
				Title:    fmt.Sprintf("%s apparatus %d", t.name, i),
				Abstract: fmt.Sprintf("A %s system. %s.", t.name, t.abstract),
				Date:     fmt.Sprintf("%02d-%02d-%d", 1+i%28, 1+i%12, year),
			})
			c.Papers = append(c.Papers, Paper{
				Title:     fmt.Sprintf("On %s, part %d", t.name, i),
				Abstract:  fmt.Sprintf("We study %s. %s.", t.name, t.abstract),
				Year:      year,
				Citations: (ti*7 + i*3) % 60,
				Field:     t.field,
			})
		}
	}
	c.TestCases = []QueryTestCase{
		{Text: "battery anode", Description: "unfiltered"},
		{Text: "protein structure", DocType: "paper", Description: "papers only"},
		{Text: "wind turbine", DocType: "patent", Description: "patents only"},
		{Text: "qubits", From: "2018-01-01", To: "2020-12-31", Description: "date window"},
		{Text: "language model", MinCitations: 30, Description: "citation threshold"},
		{Text: "crispr", Field: "Biology", Description: "field of research"},
		{Text: "scheduling", DocType: "paper", From: "2016-01-01", To: "2022-12-31", MinCitations: 5, Field: "Operations Research", Description: "all filters"},
	}
	return c
}

// PatentRows returns the patent table including its header.
func (c *Corpus) PatentRows() [][]string {
	rows := [][]string{{"patent_id", "patent_title", "patent_abstract", "patent_date"}}
	for _, p := range c.Patents {
		rows = append(rows, []string{p.ID, p.Title, p.Abstract, p.Date})
	}
	return rows
}

// PaperRows returns the paper table including its header.
func (c *Corpus) PaperRows() [][]string {
	rows := [][]string{{"title", "abstract", "publication_date", "citation_count", "field_of_research"}}
	for _, p := range c.Papers {
		rows = append(rows, []string{p.Title, p.Abstract, strconv.Itoa(p.Year), strconv.Itoa(p.Citations), p.Field})
	}
	return rows
}
