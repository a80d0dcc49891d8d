// Package excel writes posterior chains to xlsx workbooks and reads them back.
package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"gouq/domain/run"
	"gouq/internal"
	"gouq/internal/samples"
	"gouq/ports"
)

// Sheet names of an exported workbook
const (
	SheetRun     = "Run"
	SheetSummary = "Summary"
	SheetChain   = "Chain"
)

// maxColumns is the xlsx column limit less the sample index column
const maxColumns = 16383

var summaryHeader = []interface{}{"index", "label", "mean", "std", "median", "lower", "upper", "ess"}

// SampleExporter writes one workbook per run into a directory
type SampleExporter struct {
	dir    string
	logger *internal.Logger
}

var _ ports.SampleExporter = (*SampleExporter)(nil)

// NewSampleExporter creates an exporter rooted at dir
func NewSampleExporter(dir string, logger *internal.Logger) *SampleExporter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SampleExporter{dir: dir, logger: logger.With("ExcelExporter")}
}

// Export writes the Run, Summary and Chain sheets and returns the workbook path
func (e *SampleExporter) Export(ctx context.Context, r *run.Run, s *samples.Samples) (string, error) {
	if s.Dim() > maxColumns {
		return "", fmt.Errorf("chain has %d parameters, xlsx holds at most %d", s.Dim(), maxColumns)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRun); err != nil {
		return "", err
	}
	if err := writeRunSheet(f, r); err != nil {
		return "", fmt.Errorf("failed to write %s sheet: %w", SheetRun, err)
	}
	if err := writeSummarySheet(f, r.Summary); err != nil {
		return "", fmt.Errorf("failed to write %s sheet: %w", SheetSummary, err)
	}
	if err := writeChainSheet(ctx, f, s); err != nil {
		return "", fmt.Errorf("failed to write %s sheet: %w", SheetChain, err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("run-%s.xlsx", r.ID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	e.logger.Info("exported %d samples of dimension %d to %s in %.2fms",
		s.Len(), s.Dim(), path, float64(time.Since(start).Nanoseconds())/1e6)
	return path, nil
}

func writeRunSheet(f *excelize.File, r *run.Run) error {
	rows := [][]interface{}{
		{"id", r.ID.String()},
		{"prior", r.Request.Prior},
		{"boundary", r.Request.Boundary},
		{"scale", r.Request.Scale},
		{"precision", r.Request.Precision},
		{"samples", r.Request.Samples},
		{"seed", fmt.Sprintf("%d", r.Request.Seed)},
		{"strategy", r.Strategy},
		{"fingerprint", r.Fingerprint.Fingerprint.String()},
		{"relative_error", r.RelativeError},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetRun, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, summary run.Summaries) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetSummary, "A1", &summaryHeader); err != nil {
		return err
	}
	for i, p := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{p.Index, p.Label, p.Mean, p.Std, p.Median, p.Lower, p.Upper, p.ESS}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// writeChainSheet streams one row per sample so large chains stay off the heap
func writeChainSheet(ctx context.Context, f *excelize.File, s *samples.Samples) error {
	if _, err := f.NewSheet(SheetChain); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetChain)
	if err != nil {
		return err
	}

	header := make([]interface{}, 0, s.Dim()+1)
	header = append(header, "sample")
	for _, label := range s.Geometry().Labels() {
		header = append(header, label)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	chain := s.Chain()
	row := make([]interface{}, s.Dim()+1)
	for j := 0; j < s.Len(); j++ {
		if j%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row[0] = j
		for i := 0; i < s.Dim(); i++ {
			row[i+1] = chain.At(i, j)
		}
		cell, err := excelize.CoordinatesToCellName(1, j+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}
