package document

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/model"
)

func loadXLSX(path string, role model.DocumentRole) (model.RawDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return model.RawDocument{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close workbook", "path", path, "error", closeErr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.RawDocument{}, fmt.Errorf("%w: workbook has no sheets", common.ErrEmptyDocument)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return model.RawDocument{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return FromTable(DocumentID(path), role, rows)
}
