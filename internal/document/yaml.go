package document

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/model"
)

// tableFile is the YAML/JSON layout written by extraction adapters:
//
//	id: offer-2025-017
//	columns: {code: 0, description: 1, quantity: 2, unit_price: 3}
//	rows:
//	  - [A123, Steel bracket, 10, "15,50"]
//
// Without columns, the first row is treated as a header.
type tableFile struct {
	Columns *columnsFile `yaml:"columns"`
	ID      string       `yaml:"id"`
	Rows    [][]any      `yaml:"rows"`
}

type columnsFile struct {
	Code        *int `yaml:"code"`
	Description *int `yaml:"description"`
	Quantity    *int `yaml:"quantity"`
	UnitPrice   *int `yaml:"unit_price"`
	TotalPrice  *int `yaml:"total_price"`
}

func (c *columnsFile) mapping() model.ColumnMapping {
	m := model.EmptyColumnMapping()
	pick := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	pick(&m.Code, c.Code)
	pick(&m.Description, c.Description)
	pick(&m.Quantity, c.Quantity)
	pick(&m.UnitPrice, c.UnitPrice)
	pick(&m.TotalPrice, c.TotalPrice)
	return m
}

func loadYAML(path string, role model.DocumentRole) (model.RawDocument, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return model.RawDocument{}, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseYAML(DocumentID(path), role, data)
}

// ParseYAML decodes a table file. JSON input is accepted as YAML.
func ParseYAML(defaultID string, role model.DocumentRole, data []byte) (model.RawDocument, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return model.RawDocument{}, fmt.Errorf("failed to parse table file: %w", err)
	}

	id := file.ID
	if id == "" {
		id = defaultID
	}

	table := make([][]string, len(file.Rows))
	for i, row := range file.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		table[i] = cells
	}

	if file.Columns == nil {
		return FromTable(id, role, table)
	}

	mapping := file.Columns.mapping()
	if err := mapping.Validate(); err != nil {
		return model.RawDocument{}, err
	}
	if len(table) == 0 {
		return model.RawDocument{}, fmt.Errorf("%w: %s", common.ErrEmptyDocument, id)
	}

	doc := model.RawDocument{ID: id, Role: role, Columns: mapping}
	for i, cells := range table {
		if isBlankRow(cells) {
			continue
		}
		doc.Rows = append(doc.Rows, model.RawRow{Number: i + 1, Cells: cells})
	}
	return doc, nil
}
