package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/config"
	"github.com/Veraticus/offer-reconciler/internal/model"
	"github.com/Veraticus/offer-reconciler/internal/storage"
)

const (
	offerCSV   = "Code,Description,Qty,Unit Price\nA123,Widget,10,15.50\nB456,Gadget,5,25.00\n"
	invoiceCSV = "Code,Description,Qty,Unit Price\nA123,Widget,10,15.50\n"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("database.path", filepath.Join(t.TempDir(), "history.db"))
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)
	return cfg
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunner_Compare(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	offer := writeDoc(t, dir, "acme-17.offer.csv", offerCSV)
	invoice := writeDoc(t, dir, "acme-17-a.invoice.csv", invoiceCSV)

	r, err := newRunner(ctx, testConfig(t), runnerOptions{})
	require.NoError(t, err)
	defer r.Close()

	result, err := r.compare(ctx, offer, []string{invoice})
	require.NoError(t, err)

	assert.Equal(t, "acme-17.offer", result.OfferID)
	assert.Equal(t, []string{"acme-17-a.invoice"}, result.InvoiceIDs)
	assert.Equal(t, model.ReportDiscrepanciesFound, result.Status)
	assert.Equal(t, 1, result.Count(model.KindMissingItem))

	stored, err := r.store.GetComparison(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.RecordSuccess, stored.Status)
	assert.Equal(t, 1, stored.Counts[model.KindMissingItem])
	assert.False(t, stored.NotificationSent)
}

func TestRunner_CompareFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	offer := writeDoc(t, dir, "broken.offer.csv", "A123,Widget,10\n")
	invoice := writeDoc(t, dir, "broken.invoice.csv", invoiceCSV)

	r, err := newRunner(ctx, testConfig(t), runnerOptions{})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.compare(ctx, offer, []string{invoice})
	require.ErrorIs(t, err, common.ErrNoHeader)

	records, err := r.store.GetComparisonHistory(ctx, storage.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, storage.RecordError, records[0].Status)
	assert.Equal(t, "broken.offer", records[0].OfferID)
	assert.Contains(t, records[0].ErrorMessage, "no recognizable header row")
}

func TestRunner_NoStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	offer := writeDoc(t, dir, "acme.offer.csv", offerCSV)

	r, err := newRunner(ctx, testConfig(t), runnerOptions{noStore: true})
	require.NoError(t, err)
	defer r.Close()
	assert.Nil(t, r.store)

	result, err := r.compare(ctx, offer, []string{writeDoc(t, dir, "acme.invoice.csv", offerCSV)})
	require.NoError(t, err)
	assert.Equal(t, model.ReportMatch, result.Status)
}

func TestNewRunner_NotifyNeedsWebhook(t *testing.T) {
	_, err := newRunner(context.Background(), testConfig(t), runnerOptions{noStore: true, forceNotify: true})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		wantErr error
		format  string
		output  string
	}{
		{format: formatText},
		{format: formatJSON},
		{format: formatXLSX, output: "out.xlsx"},
		{format: formatXLSX, wantErr: common.ErrUnsupportedFormat},
		{format: "pdf", wantErr: common.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.format+tt.output, func(t *testing.T) {
			err := validateFormat(tt.format, tt.output)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWriteReport(t *testing.T) {
	result := &model.ComparisonReport{ID: "report-1", OfferID: "acme", Status: model.ReportMatch}

	var stdout bytes.Buffer
	require.NoError(t, writeReport(&stdout, formatJSON, "", result))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	assert.Equal(t, "report-1", decoded["id"])

	stdout.Reset()
	out := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, writeReport(&stdout, formatXLSX, out, result))
	assert.Zero(t, stdout.Len())
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	stdout.Reset()
	require.NoError(t, writeReport(&stdout, formatText, "", result))
	assert.Contains(t, stdout.String(), "Offer acme")
}
