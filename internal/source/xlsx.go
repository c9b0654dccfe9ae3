package source

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/muratoffalex/memebot/internal/trigger"
)

const (
	DefaultTriggerColumn   = "Meme"
	DefaultReferenceColumn = "StickerID"
)

// XLSXSource reads records from a workbook whose first row names the
// columns. Rows with an empty trigger or reference cell are ignored.
type XLSXSource struct {
	Path            string
	Sheet           string
	TriggerColumn   string
	ReferenceColumn string
}

func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{
		Path:            path,
		Sheet:           sheet,
		TriggerColumn:   DefaultTriggerColumn,
		ReferenceColumn: DefaultReferenceColumn,
	}
}

func (s *XLSXSource) Name() string {
	return "xlsx:" + s.Path
}

func (s *XLSXSource) Load(ctx context.Context) ([]trigger.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %w", ErrUnavailable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets found in workbook", ErrUnavailable)
	}

	sheet := s.Sheet
	if sheet == "" {
		sheet = sheets[0]
	}
	if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("%w: sheet %q not found, available sheets: %v", ErrUnavailable, sheet, sheets)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %w", ErrUnavailable, sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	triggerCol, refCol := -1, -1
	for i, header := range rows[0] {
		switch strings.TrimSpace(header) {
		case s.TriggerColumn:
			triggerCol = i
		case s.ReferenceColumn:
			refCol = i
		}
	}
	if triggerCol < 0 || refCol < 0 {
		return nil, fmt.Errorf("%w: sheet %q needs %q and %q columns", ErrUnavailable, sheet, s.TriggerColumn, s.ReferenceColumn)
	}

	records := make([]trigger.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		triggers := cell(row, triggerCol)
		ref := cell(row, refCol)
		if triggers == "" || ref == "" {
			continue
		}
		records = append(records, trigger.Record{
			Triggers: []string{triggers},
			MediaRef: ref,
		})
	}

	return records, nil
}

// GetRows trims trailing empty cells, so short rows are common.
func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
