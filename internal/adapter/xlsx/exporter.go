package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/eonet-report/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter renders rows into a single-sheet workbook.
// It implements pipeline.Exporter.
type Exporter struct {
	outputDir string
	logger    *slog.Logger
}

// NewExporter creates an exporter. When outputDir is non-empty every
// workbook is also saved there.
func NewExporter(outputDir string, logger *slog.Logger) *Exporter {
	return &Exporter{outputDir: outputDir, logger: logger}
}

// Export builds EONET_data_<month>.xlsx with a header row of column names
// followed by one row per record.
func (e *Exporter) Export(ctx context.Context, month string, rows []domain.Row) (domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, err
	}

	data, err := render(rows)
	if err != nil {
		return domain.Attachment{}, err
	}

	att := domain.Attachment{
		Filename:    domain.ReportFilename(month),
		ContentType: ContentType,
		Data:        data,
	}

	if e.outputDir != "" {
		path := filepath.Join(e.outputDir, att.Filename)
		if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
			return domain.Attachment{}, fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return domain.Attachment{}, fmt.Errorf("write workbook: %w", err)
		}
		e.logger.Info("workbook saved", "path", path, "bytes", len(data))
	}

	return att, nil
}

func render(rows []domain.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", domain.ReportSheet); err != nil {
		return nil, fmt.Errorf("name worksheet: %w", err)
	}

	sw, err := f.NewStreamWriter(domain.ReportSheet)
	if err != nil {
		return nil, fmt.Errorf("open worksheet: %w", err)
	}

	header := make([]any, len(domain.Columns))
	for i, c := range domain.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells(row)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush worksheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cells returns the worksheet values for a row. A nil closed value leaves
// the cell empty.
func cells(r domain.Row) []any {
	vals := r.Values()
	if r.Closed != nil {
		vals[4] = displayTime(*r.Closed)
	}
	vals[9] = displayTime(r.Date)
	return vals
}

var timeReplacer = strings.NewReplacer("T", " ", "Z", " ")

// displayTime turns 2017-10-05T00:00:00Z into 2017-10-05 00:00:00.
func displayTime(s string) string {
	return strings.TrimSpace(timeReplacer.Replace(s))
}
