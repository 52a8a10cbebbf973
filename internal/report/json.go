package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// WriteJSON writes report as indented JSON.
func WriteJSON(w io.Writer, report *model.ComparisonReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
