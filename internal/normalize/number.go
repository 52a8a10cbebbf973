package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	rePlain          = regexp.MustCompile(`^\d+$`)
	reSingleDecimal  = regexp.MustCompile(`^\d*[.,]\d+$`)
	reCommaGrouped   = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
	reDotGrouped     = regexp.MustCompile(`^\d{1,3}(\.\d{3})+(,\d+)?$`)
	reTrailingDashes = regexp.MustCompile(`[.,][-–—]+$`)
)

// unitTokens are quantity units stripped when they trail a number.
var unitTokens = map[string]struct{}{
	"PCS": {}, "PC": {}, "STK": {}, "ST": {}, "EA": {}, "X": {}, "UNITS": {}, "UNIT": {},
}

// currencyCodes are stripped when they lead or trail a number.
var currencyCodes = map[string]struct{}{
	"EUR": {}, "USD": {}, "GBP": {}, "CHF": {}, "JPY": {}, "CNY": {}, "SEK": {},
	"NOK": {}, "DKK": {}, "PLN": {}, "CZK": {}, "HUF": {}, "CAD": {}, "AUD": {},
	"NZD": {}, "INR": {}, "RUB": {}, "TRY": {}, "MMK": {}, "SGD": {}, "HKD": {},
	"FR": {}, "KS": {}, "KR": {}, "RS": {}, "ZŁ": {}, "KČ": {}, "FT": {}, "LEI": {},
}

// ParseDecimal converts a noisy numeric cell into a decimal.
// Blank and dash-only cells are absent (Valid=false), which is distinct from zero.
func ParseDecimal(cell string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(cell)
	if isBlank(s) {
		return decimal.NullDecimal{}, nil
	}

	cleaned := stripCurrency(stripSpacing(s))
	cleaned = reTrailingDashes.ReplaceAllString(cleaned, "")

	negative := false
	switch {
	case strings.HasPrefix(cleaned, "-"):
		negative = true
		cleaned = cleaned[1:]
	case strings.HasPrefix(cleaned, "+"):
		cleaned = cleaned[1:]
	}

	canonical, ok := canonicalize(cleaned)
	if !ok {
		return decimal.NullDecimal{}, &UnparseableNumberError{Value: cell}
	}

	value, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.NullDecimal{}, &UnparseableNumberError{Value: cell}
	}
	if negative {
		value = value.Neg()
	}

	return decimal.NewNullDecimal(value), nil
}

// canonicalize rewrites digits and separators into the form decimal expects.
// A single separator occurrence is the decimal separator; grouped forms must
// use groups of exactly three digits.
func canonicalize(s string) (string, bool) {
	switch {
	case rePlain.MatchString(s):
		return s, true
	case reSingleDecimal.MatchString(s):
		return strings.Replace(s, ",", ".", 1), true
	case reCommaGrouped.MatchString(s):
		return strings.ReplaceAll(s, ",", ""), true
	case reDotGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1), true
	default:
		return "", false
	}
}

func isBlank(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r != '-' && r != '–' && r != '—' {
			return false
		}
	}
	return true
}

// stripSpacing removes whitespace and apostrophe digit grouping.
func stripSpacing(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' || r == '’' {
			return -1
		}
		return r
	}, s)
}

// stripCurrency removes currency symbols anywhere, currency codes at either
// end and quantity units at the end.
func stripCurrency(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)

	lead := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && r != '.' })
	if lead > 0 && isCurrencyCode(s[:lead]) {
		s = s[lead:]
	}

	trail := strings.LastIndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && r != '.' })
	if trail >= 0 && trail < len(s)-1 {
		// trail points at the last non-letter rune; letters follow it
		_, size := firstRune(s[trail:])
		if suffix := s[trail+size:]; isCurrencyCode(suffix) || isUnitToken(suffix) {
			s = s[:trail+size]
		}
	}

	return s
}

func isCurrencyCode(token string) bool {
	token = strings.TrimSuffix(strings.ToUpper(token), ".")
	_, ok := currencyCodes[token]
	return ok
}

func isUnitToken(token string) bool {
	token = strings.TrimSuffix(strings.ToUpper(token), ".")
	_, ok := unitTokens[token]
	return ok
}

func firstRune(s string) (rune, int) {
	for _, r := range s {
		return r, len(string(r))
	}
	return 0, 0
}
