package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Name markers that classify files inside a batch directory.
const (
	OfferMarker   = ".offer"
	InvoiceMarker = ".invoice"
)

// Pair is one offer file with every invoice file that belongs to it.
type Pair struct {
	Offer    string
	Invoices []string
}

// OfferStem returns the name an offer file is paired by, or false when the
// file is not an offer. "acme-17.offer.csv" has stem "acme-17".
func OfferStem(path string) (string, bool) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !Supported(path) || !strings.HasSuffix(name, OfferMarker) {
		return "", false
	}
	return strings.TrimSuffix(name, OfferMarker), true
}

// IsInvoice reports whether path is named like an invoice file.
func IsInvoice(path string) bool {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Supported(path) && strings.HasSuffix(name, InvoiceMarker)
}

// MatchOffer returns the stem that invoice belongs to. The longest stem that
// prefixes the invoice name wins, so "acme-1" does not claim "acme-12" invoices
// when both offers exist.
func MatchOffer(invoice string, stems []string) (string, bool) {
	name := filepath.Base(invoice)
	best := ""
	for _, stem := range stems {
		if strings.HasPrefix(name, stem) && len(stem) > len(best) {
			best = stem
		}
	}
	return best, best != ""
}

// FindPairs scans dir for offers and their invoices. Pairs are sorted by offer
// path and invoices by name.
func FindPairs(dir string) ([]Pair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	offers := make(map[string]string)
	var stems, invoices []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if stem, ok := OfferStem(path); ok {
			offers[stem] = path
			stems = append(stems, stem)
			continue
		}
		if IsInvoice(path) {
			invoices = append(invoices, path)
		}
	}

	byStem := make(map[string][]string, len(stems))
	for _, inv := range invoices {
		if stem, ok := MatchOffer(inv, stems); ok {
			byStem[stem] = append(byStem[stem], inv)
		}
	}

	pairs := make([]Pair, 0, len(stems))
	for _, stem := range stems {
		list := byStem[stem]
		sort.Strings(list)
		pairs = append(pairs, Pair{Offer: offers[stem], Invoices: list})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Offer < pairs[j].Offer })

	return pairs, nil
}
