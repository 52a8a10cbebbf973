package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_CSV(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "comma separated",
			file:    "acme.offer.csv",
			content: "Item Code,Description,Qty,Unit Price\nA123,Widget,10,15.50\n,,,\nB456,Gadget,5,25.00\n",
		},
		{
			name:    "semicolon with decimal commas",
			file:    "acme-de.offer.csv",
			content: "Art.-Nr.;Bezeichnung;Menge;Einzelpreis\nA123;Widget;10;15,50\n;;;\nB456;Gadget;5;25,00\n",
		},
		{
			name:    "byte order mark",
			file:    "bom.offer.csv",
			content: "\ufeffCode,Description,Quantity,Price\nA123,Widget,10,15.50\n,,,\nB456,Gadget,5,25.00\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)

			doc, err := Load(path, model.RoleOffer)
			require.NoError(t, err)

			assert.Equal(t, DocumentID(path), doc.ID)
			assert.Equal(t, model.RoleOffer, doc.Role)
			assert.Equal(t, model.ColumnMapping{Code: 0, Description: 1, Quantity: 2, UnitPrice: 3, TotalPrice: model.NoColumn}, doc.Columns)
			require.Len(t, doc.Rows, 2)
			assert.Equal(t, 2, doc.Rows[0].Number)
			assert.Equal(t, 4, doc.Rows[1].Number)
			assert.Equal(t, "B456", doc.Rows[1].Cell(0))
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		wantErr error
		name    string
		file    string
		content string
	}{
		{name: "unsupported extension", file: "offer.pdf", content: "%PDF", wantErr: common.ErrUnsupportedFormat},
		{name: "no header", file: "x.offer.csv", content: "A123,Widget,10,15.50\n", wantErr: common.ErrNoHeader},
		{name: "only blank rows", file: "y.offer.csv", content: "\n,,\n", wantErr: common.ErrEmptyDocument},
		{name: "header without identity", file: "z.offer.csv", content: "Qty,Price\n1,2\n", wantErr: model.ErrInvalidColumnMapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := Load(path, model.RoleOffer)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()

	t.Run("explicit columns", func(t *testing.T) {
		path := writeFile(t, dir, "inv.invoice.yaml", `
id: INV-2025-0042
columns:
  code: 0
  quantity: 1
  unit_price: 2
rows:
  - [A123, 10, "15,50"]
  - [null, null, null]
  - [B456, 5, 25.5]
`)
		doc, err := Load(path, model.RoleInvoice)
		require.NoError(t, err)

		assert.Equal(t, "INV-2025-0042", doc.ID)
		assert.Equal(t, model.ColumnMapping{Code: 0, Description: model.NoColumn, Quantity: 1, UnitPrice: 2, TotalPrice: model.NoColumn}, doc.Columns)
		require.Len(t, doc.Rows, 2)
		assert.Equal(t, []string{"A123", "10", "15,50"}, doc.Rows[0].Cells)
		assert.Equal(t, 3, doc.Rows[1].Number)
		assert.Equal(t, "25.5", doc.Rows[1].Cell(2))
	})

	t.Run("header row in json", func(t *testing.T) {
		path := writeFile(t, dir, "inv.invoice.json",
			`{"rows": [["SKU", "Product", "Qty", "Price"], ["A123", "Widget", "10", "15.50"]]}`)
		doc, err := Load(path, model.RoleInvoice)
		require.NoError(t, err)

		assert.Equal(t, "inv.invoice", doc.ID)
		assert.Equal(t, 0, doc.Columns.Code)
		assert.Equal(t, 1, doc.Columns.Description)
		require.Len(t, doc.Rows, 1)
	})

	t.Run("invalid columns", func(t *testing.T) {
		path := writeFile(t, dir, "bad.invoice.yaml", "columns: {quantity: 0}\nrows: [[1]]\n")
		_, err := Load(path, model.RoleInvoice)
		assert.ErrorIs(t, err, model.ErrInvalidColumnMapping)
	})
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.offer.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Item No.", "Description", "Quantity", "Unit Price", "Total"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"A123", "Widget", 10, 15.5, 155}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"B456", "Gadget", 5, 25, 125}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	doc, err := Load(path, model.RoleOffer)
	require.NoError(t, err)

	assert.Equal(t, "acme.offer", doc.ID)
	assert.Equal(t, model.ColumnMapping{Code: 0, Description: 1, Quantity: 2, UnitPrice: 3, TotalPrice: 4}, doc.Columns)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "A123", doc.Rows[0].Cell(0))
	assert.Equal(t, "15.5", doc.Rows[0].Cell(3))
	assert.Equal(t, 4, doc.Rows[1].Number)
}

func TestFindPairs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"acme-1.offer.csv",
		"acme-12.offer.xlsx",
		"acme-1.invoice-a.csv",
		"acme-1-second.invoice.csv",
		"acme-12-first.invoice.yaml",
		"orphan.invoice.csv",
		"notes.txt",
	} {
		writeFile(t, dir, name, "")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.offer.csv"), 0o750))

	pairs, err := FindPairs(dir)
	require.NoError(t, err)

	require.Len(t, pairs, 2)
	assert.Equal(t, filepath.Join(dir, "acme-1.offer.csv"), pairs[0].Offer)
	assert.Equal(t, []string{filepath.Join(dir, "acme-1-second.invoice.csv")}, pairs[0].Invoices)
	assert.Equal(t, filepath.Join(dir, "acme-12.offer.xlsx"), pairs[1].Offer)
	assert.Equal(t, []string{filepath.Join(dir, "acme-12-first.invoice.yaml")}, pairs[1].Invoices)
}

func TestOfferStem(t *testing.T) {
	stem, ok := OfferStem("/in/acme-17.offer.csv")
	assert.True(t, ok)
	assert.Equal(t, "acme-17", stem)

	_, ok = OfferStem("/in/acme-17.invoice.csv")
	assert.False(t, ok)
	_, ok = OfferStem("/in/acme-17.offer.pdf")
	assert.False(t, ok)
}
