// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
)

// DocumentRole indicates which side of a reconciliation a document belongs to.
type DocumentRole string

// Document role constants.
const (
	RoleOffer   DocumentRole = "OFFER"
	RoleInvoice DocumentRole = "INVOICE"
)

// NoColumn marks a column role that the document does not carry.
const NoColumn = -1

// ErrInvalidColumnMapping indicates a column mapping that cannot be used for normalization.
var ErrInvalidColumnMapping = errors.New("invalid column mapping")

// ColumnMapping tells the normalizer which cell index holds which field.
type ColumnMapping struct {
	Code        int `json:"code" yaml:"code"`
	Description int `json:"description" yaml:"description"`
	Quantity    int `json:"quantity" yaml:"quantity"`
	UnitPrice   int `json:"unit_price" yaml:"unit_price"`
	TotalPrice  int `json:"total_price" yaml:"total_price"`
}

// EmptyColumnMapping returns a mapping with every role unassigned.
func EmptyColumnMapping() ColumnMapping {
	return ColumnMapping{
		Code:        NoColumn,
		Description: NoColumn,
		Quantity:    NoColumn,
		UnitPrice:   NoColumn,
		TotalPrice:  NoColumn,
	}
}

// Validate ensures the mapping can identify items and has no conflicting roles.
func (m ColumnMapping) Validate() error {
	roles := []struct {
		name  string
		index int
	}{
		{"code", m.Code},
		{"description", m.Description},
		{"quantity", m.Quantity},
		{"unit_price", m.UnitPrice},
		{"total_price", m.TotalPrice},
	}

	seen := make(map[int]string, len(roles))
	for _, role := range roles {
		if role.index < NoColumn {
			return fmt.Errorf("%w: %s has negative index %d", ErrInvalidColumnMapping, role.name, role.index)
		}
		if role.index == NoColumn {
			continue
		}
		if other, ok := seen[role.index]; ok {
			return fmt.Errorf("%w: %s and %s share column %d", ErrInvalidColumnMapping, other, role.name, role.index)
		}
		seen[role.index] = role.name
	}

	if m.Code == NoColumn && m.Description == NoColumn {
		return fmt.Errorf("%w: neither code nor description column is mapped", ErrInvalidColumnMapping)
	}
	return nil
}

// RawRow is one row of text cells as segmented by the extraction adapter.
type RawRow struct {
	Cells  []string
	Number int // 1-based position in the source document
}

// Cell returns the cell at index, or an empty string if the row is too short
// or the role is unmapped.
func (r RawRow) Cell(index int) string {
	if index < 0 || index >= len(r.Cells) {
		return ""
	}
	return r.Cells[index]
}

// RawDocument is everything the extraction adapter produced for one file.
type RawDocument struct {
	ID      string
	Role    DocumentRole
	Rows    []RawRow
	Columns ColumnMapping
}

// RowError records a row that could not be turned into a line item.
type RowError struct {
	Err        error  `json:"-"`
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
	Row        int    `json:"row"`
}

// NewRowError wraps err with the document and row it came from.
func NewRowError(documentID string, row int, err error) RowError {
	return RowError{
		DocumentID: documentID,
		Row:        row,
		Err:        err,
		Message:    err.Error(),
	}
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.DocumentID, e.Row, e.Message)
}

func (e RowError) Unwrap() error {
	return e.Err
}
