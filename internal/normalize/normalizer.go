// Package normalize turns raw extracted table rows into typed line items.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

var reMultiSpace = regexp.MustCompile(`\s+`)

// Normalizer converts raw rows into line items.
type Normalizer struct{}

// NewNormalizer creates a new row normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeDocument normalizes every row of doc. Row-level failures are
// collected and never stop sibling rows; only an unusable column mapping
// fails the whole document.
func (n *Normalizer) NormalizeDocument(doc model.RawDocument) ([]model.LineItem, []model.RowError, error) {
	if err := doc.Columns.Validate(); err != nil {
		return nil, nil, fmt.Errorf("document %s: %w", doc.ID, err)
	}

	items := make([]model.LineItem, 0, len(doc.Rows))
	var rowErrors []model.RowError

	for _, row := range doc.Rows {
		item, err := n.NormalizeRow(doc.ID, doc.Columns, row)
		if err != nil {
			rowErrors = append(rowErrors, model.NewRowError(doc.ID, row.Number, err))
			continue
		}
		items = append(items, item)
	}

	return items, rowErrors, nil
}

// NormalizeRow converts a single row using mapping.
func (n *Normalizer) NormalizeRow(documentID string, mapping model.ColumnMapping, row model.RawRow) (model.LineItem, error) {
	code := cleanText(row.Cell(mapping.Code))
	description := cleanText(row.Cell(mapping.Description))
	if code == "" && description == "" {
		return model.LineItem{}, &MalformedRowError{Reason: "row has neither item code nor description"}
	}

	quantity, err := parseColumn(row, mapping.Quantity, "quantity")
	if err != nil {
		return model.LineItem{}, err
	}
	unitPrice, err := parseColumn(row, mapping.UnitPrice, "unit price")
	if err != nil {
		return model.LineItem{}, err
	}
	totalPrice, err := parseColumn(row, mapping.TotalPrice, "total price")
	if err != nil {
		return model.LineItem{}, err
	}

	for _, field := range []struct {
		name  string
		value decimal.NullDecimal
	}{
		{"quantity", quantity},
		{"unit price", unitPrice},
		{"total price", totalPrice},
	} {
		if field.value.Valid && field.value.Decimal.IsNegative() {
			return model.LineItem{}, &MalformedRowError{Reason: fmt.Sprintf("negative %s %s", field.name, field.value.Decimal)}
		}
	}

	item := model.LineItem{
		ItemCode:         code,
		Description:      description,
		SourceDocumentID: documentID,
		SourceRow:        row.Number,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		TotalPrice:       totalPrice,
	}
	if !totalPrice.Valid && quantity.Valid && unitPrice.Valid {
		item.TotalPrice = decimal.NewNullDecimal(quantity.Decimal.Mul(unitPrice.Decimal))
		item.TotalDerived = true
	}

	return item, nil
}

func parseColumn(row model.RawRow, index int, column string) (decimal.NullDecimal, error) {
	value, err := ParseDecimal(row.Cell(index))
	if err != nil {
		var numErr *UnparseableNumberError
		if errors.As(err, &numErr) {
			numErr.Column = column
		}
		return decimal.NullDecimal{}, err
	}
	return value, nil
}

func cleanText(s string) string {
	return strings.TrimSpace(reMultiSpace.ReplaceAllString(s, " "))
}
