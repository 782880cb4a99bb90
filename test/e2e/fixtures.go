package e2e

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// WriteSources writes the corpus as patents.csv and papers.xlsx under dir and
// returns both paths.
func WriteSources(dir string, c *Corpus) (patents, papers string, err error) {
	patents = filepath.Join(dir, "patents.csv")
	papers = filepath.Join(dir, "papers.xlsx")
	if err := writeCSV(patents, c.PatentRows()); err != nil {
		return "", "", err
	}
	if err := writeXLSX(papers, c.PaperRows()); err != nil {
		return "", "", err
	}
	return patents, papers, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Sync()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return f.SaveAs(path)
}
