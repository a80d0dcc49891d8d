package excel

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"gouq/domain/run"
)

// ExportedChain is the Chain sheet of a workbook read back into memory
type ExportedChain struct {
	Labels []string
	Chain  *mat.Dense // parameters × samples
}

// ReadChain loads the Chain sheet of an exported workbook
func ReadChain(path string) (*ExportedChain, error) {
	rows, err := readSheet(path, SheetChain)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s sheet must have a header row and at least one sample", SheetChain)
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%s sheet has no parameter columns", SheetChain)
	}
	dim, ns := len(header)-1, len(rows)-1
	chain := mat.NewDense(dim, ns, nil)
	for j, row := range rows[1:] {
		if len(row) != dim+1 {
			return nil, fmt.Errorf("sample row %d has %d cells, want %d", j+2, len(row), dim+1)
		}
		for i, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", j+2, i+2, err)
			}
			chain.Set(i, j, v)
		}
	}
	return &ExportedChain{Labels: header[1:], Chain: chain}, nil
}

// ReadSummary loads the Summary sheet of an exported workbook
func ReadSummary(path string) (run.Summaries, error) {
	rows, err := readSheet(path, SheetSummary)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s sheet is empty", SheetSummary)
	}

	out := make(run.Summaries, 0, len(rows)-1)
	for r, row := range rows[1:] {
		if len(row) != len(summaryHeader) {
			return nil, fmt.Errorf("summary row %d has %d cells, want %d", r+2, len(row), len(summaryHeader))
		}
		idx, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("summary row %d: %w", r+2, err)
		}
		vals := make([]float64, 6)
		for k := range vals {
			if vals[k], err = strconv.ParseFloat(row[k+2], 64); err != nil {
				return nil, fmt.Errorf("summary row %d: %w", r+2, err)
			}
		}
		out = append(out, run.ParameterSummary{
			Index:  idx,
			Label:  row[1],
			Mean:   vals[0],
			Std:    vals[1],
			Median: vals[2],
			Lower:  vals[3],
			Upper:  vals[4],
			ESS:    vals[5],
		})
	}
	return out, nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	return rows, nil
}
