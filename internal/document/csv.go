package document

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func loadCSV(path string, role model.DocumentRole) (model.RawDocument, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return model.RawDocument{}, fmt.Errorf("failed to read file: %w", err)
	}

	table, err := ParseCSV(data)
	if err != nil {
		return model.RawDocument{}, err
	}
	return FromTable(DocumentID(path), role, table)
}

// ParseCSV reads delimited text, sniffing ';', tab or ',' from the first
// non-empty line.
func ParseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	table, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return table, nil
}

func sniffDelimiter(data []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		best, bestCount := ',', bytes.Count(line, []byte{','})
		for _, candidate := range []rune{';', '\t'} {
			if n := bytes.Count(line, []byte(string(candidate))); n > bestCount {
				best, bestCount = candidate, n
			}
		}
		return best
	}
	return ','
}
