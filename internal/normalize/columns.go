package normalize

import (
	"strings"
	"unicode"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// Header keywords per column role. Roles are tried in this order so that
// "Total Price" is a total and "Item Description" is a description.
var (
	totalKeywords       = []string{"total", "sum", "amount", "betrag", "gesamt", "gesamtpreis", "subtotal", "linetotal"}
	priceKeywords       = []string{"price", "preis", "rate", "unit", "einzelpreis", "ep", "unitprice"}
	quantityKeywords    = []string{"qty", "quantity", "menge", "anzahl", "pcs", "qnt"}
	descriptionKeywords = []string{"description", "desc", "product", "bezeichnung", "artikelbezeichnung", "name", "designation"}
	codeKeywords        = []string{"code", "item", "article", "art", "artikel", "sku", "part", "nr", "no", "number", "ref", "artnr", "artikelnr", "artikelnummer", "#", "id"}
)

// DetectColumns guesses the column mapping from a table header row.
func DetectColumns(header []string) (model.ColumnMapping, error) {
	mapping := model.EmptyColumnMapping()

	// the first header claiming a role keeps it
	assign := func(target *int, index int) {
		if *target == model.NoColumn {
			*target = index
		}
	}

	for i, cell := range header {
		tokens := headerTokens(cell)
		if len(tokens) == 0 {
			continue
		}

		switch {
		case hasKeyword(tokens, totalKeywords):
			assign(&mapping.TotalPrice, i)
		case hasKeyword(tokens, priceKeywords):
			assign(&mapping.UnitPrice, i)
		case hasKeyword(tokens, quantityKeywords):
			assign(&mapping.Quantity, i)
		case hasKeyword(tokens, descriptionKeywords):
			assign(&mapping.Description, i)
		case hasKeyword(tokens, codeKeywords):
			assign(&mapping.Code, i)
		}
	}

	return mapping, mapping.Validate()
}

// LooksLikeHeader reports whether a row carries at least two recognizable headings.
func LooksLikeHeader(cells []string) bool {
	hits := 0
	for _, cell := range cells {
		tokens := headerTokens(cell)
		for _, keywords := range [][]string{totalKeywords, priceKeywords, quantityKeywords, descriptionKeywords, codeKeywords} {
			if hasKeyword(tokens, keywords) {
				hits++
				break
			}
		}
	}
	return hits >= 2
}

func headerTokens(cell string) []string {
	return strings.FieldsFunc(strings.ToLower(cell), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '#'
	})
}

func hasKeyword(tokens, keywords []string) bool {
	for _, token := range tokens {
		for _, keyword := range keywords {
			if token == keyword {
				return true
			}
		}
	}
	return false
}
