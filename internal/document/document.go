// Package document loads already row-segmented tables (CSV, XLSX, YAML, JSON)
// into raw documents for the reconciliation engine.
package document

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/model"
	"github.com/Veraticus/offer-reconciler/internal/normalize"
)

// SupportedExtensions lists the file extensions Load understands.
var SupportedExtensions = []string{".csv", ".xlsx", ".yaml", ".yml", ".json"}

// Load reads the table at path as a document in the given role.
func Load(path string, role model.DocumentRole) (model.RawDocument, error) {
	var (
		doc model.RawDocument
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		doc, err = loadCSV(path, role)
	case ".xlsx":
		doc, err = loadXLSX(path, role)
	case ".yaml", ".yml", ".json":
		doc, err = loadYAML(path, role)
	default:
		return model.RawDocument{}, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Base(path))
	}
	if err != nil {
		return model.RawDocument{}, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return doc, nil
}

// Supported reports whether Load can read path.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// DocumentID derives a document ID from a file name.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FromTable builds a document from raw table rows. Fully blank rows are
// dropped, the first remaining row must be a header, and row numbers refer
// to the position in the original table.
func FromTable(id string, role model.DocumentRole, table [][]string) (model.RawDocument, error) {
	doc := model.RawDocument{ID: id, Role: role}

	headerFound := false
	for i, cells := range table {
		if isBlankRow(cells) {
			continue
		}
		if !headerFound {
			if !normalize.LooksLikeHeader(cells) {
				return model.RawDocument{}, fmt.Errorf("%w: row %d of %s", common.ErrNoHeader, i+1, id)
			}
			mapping, err := normalize.DetectColumns(cells)
			if err != nil {
				return model.RawDocument{}, err
			}
			doc.Columns = mapping
			headerFound = true
			continue
		}
		doc.Rows = append(doc.Rows, model.RawRow{Number: i + 1, Cells: cells})
	}

	if !headerFound {
		return model.RawDocument{}, fmt.Errorf("%w: %s", common.ErrEmptyDocument, id)
	}
	return doc, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
