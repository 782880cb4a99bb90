package openalex

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSVHeader is the column layout of the paper table.
var CSVHeader = []string{"title", "abstract", "publication_date", "citation_count", "field_of_research"}

// WriteCSV writes papers to path, creating parent directories as needed.
func WriteCSV(path string, papers []Paper) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range papers {
		row := []string{p.Title, p.Abstract, p.PublicationDate, strconv.Itoa(p.CitationCount), p.FieldOfResearch}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
