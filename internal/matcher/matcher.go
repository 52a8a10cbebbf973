// Package matcher pairs invoice items with offer lines by match key.
package matcher

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/matchkey"
	"github.com/Veraticus/offer-reconciler/internal/model"
)

// TieBreak selects an offer line when several share one key.
type TieBreak string

// Tie-break policies.
const (
	TieBreakFirstUnfilled TieBreak = "first_unfilled"
	TieBreakFirst         TieBreak = "first"
)

// Valid reports whether t names a known policy.
func (t TieBreak) Valid() bool {
	return t == TieBreakFirstUnfilled || t == TieBreakFirst
}

// Options configures a Matcher.
type Options struct {
	TieBreak  TieBreak
	Threshold float64 // description similarity for code-less items
	Strict    bool    // fail instead of guessing on duplicate keys
}

// UnmatchedItem is an invoice item that found no offer line.
type UnmatchedItem struct {
	Reason model.ExtraReason
	Item   model.LineItem
}

// Result is the immutable outcome of one matching pass.
type Result struct {
	Assignments [][]model.LineItem // indexed like the offer, processing order
	Unmatched   []UnmatchedItem
	Notes       []string
}

// Matcher assigns invoice items to offer lines.
type Matcher struct {
	opts Options
}

// New creates a matcher. An empty tie-break policy means first_unfilled.
func New(opts Options) *Matcher {
	if opts.TieBreak == "" {
		opts.TieBreak = TieBreakFirstUnfilled
	}
	return &Matcher{opts: opts}
}

// Match pairs every invoice item with at most one offer line. Invoices are
// processed ordered by source document ID, so the order they are passed in
// never changes the outcome. Items keep their document order.
func (m *Matcher) Match(offer []model.LineItem, invoices [][]model.LineItem) (Result, error) {
	idx := newIndex(offer)
	resolver := matchkey.NewResolver(m.opts.Threshold, offer)

	result := Result{Assignments: make([][]model.LineItem, len(offer))}
	delivered := make([]decimal.Decimal, len(offer))

	for _, items := range processingOrder(invoices) {
		for _, item := range items {
			key, ok := resolver.Resolve(item)
			if !ok {
				result.Unmatched = append(result.Unmatched, UnmatchedItem{Item: item, Reason: model.ReasonUnkeyable})
				continue
			}

			candidates := idx.lookup(key)
			if len(candidates) == 0 {
				result.Unmatched = append(result.Unmatched, UnmatchedItem{Item: item, Reason: model.ReasonUnmatched})
				continue
			}

			target := candidates[0]
			if len(candidates) > 1 {
				var err error
				target, err = m.breakTie(key, item, candidates, offer, delivered)
				if err != nil {
					return Result{}, err
				}
				result.Notes = append(result.Notes, fmt.Sprintf(
					"%s row %d: %d offer lines share %s; assigned to offer line %d by %s",
					item.SourceDocumentID, item.SourceRow, len(candidates), describeKey(key), target+1, m.opts.TieBreak))
			}

			result.Assignments[target] = append(result.Assignments[target], item)
			if item.Quantity.Valid {
				delivered[target] = delivered[target].Add(item.Quantity.Decimal)
			}
		}
	}

	return result, nil
}

// processingOrder returns the invoices sorted by document ID. The input slice
// is left untouched.
func processingOrder(invoices [][]model.LineItem) [][]model.LineItem {
	ordered := make([][]model.LineItem, len(invoices))
	copy(ordered, invoices)
	sort.SliceStable(ordered, func(i, j int) bool {
		return documentID(ordered[i]) < documentID(ordered[j])
	})
	return ordered
}

func documentID(items []model.LineItem) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].SourceDocumentID
}

func (m *Matcher) breakTie(key model.MatchKey, item model.LineItem, candidates []int, offer []model.LineItem, delivered []decimal.Decimal) (int, error) {
	var unfilled []int
	for _, i := range candidates {
		if !filled(offer[i], delivered[i]) {
			unfilled = append(unfilled, i)
		}
	}

	if m.opts.Strict {
		if len(unfilled) != 1 {
			return 0, &AmbiguousKeyError{Key: key, Item: item, Candidates: candidates, Unfilled: len(unfilled)}
		}
		return unfilled[0], nil
	}

	if m.opts.TieBreak == TieBreakFirstUnfilled && len(unfilled) > 0 {
		return unfilled[0], nil
	}
	return candidates[0], nil
}

// filled reports whether an offer line has received its full quantity.
// A line without a known quantity is never filled.
func filled(line model.LineItem, delivered decimal.Decimal) bool {
	return line.Quantity.Valid && delivered.GreaterThanOrEqual(line.Quantity.Decimal)
}

type index struct {
	byCode      map[string][]int
	bySignature map[string][]int
	keys        []model.MatchKey
}

func newIndex(offer []model.LineItem) *index {
	idx := &index{
		byCode:      make(map[string][]int),
		bySignature: make(map[string][]int),
		keys:        make([]model.MatchKey, len(offer)),
	}
	for i, item := range offer {
		key := matchkey.KeyOf(item)
		idx.keys[i] = key
		if key.Code != "" {
			idx.byCode[key.Code] = append(idx.byCode[key.Code], i)
		}
		if key.Signature != "" {
			idx.bySignature[key.Signature] = append(idx.bySignature[key.Signature], i)
		}
	}
	return idx
}

// lookup returns candidate offer lines in offer order.
func (idx *index) lookup(key model.MatchKey) []int {
	if key.Code != "" {
		candidates := idx.byCode[key.Code]
		if len(candidates) < 2 || key.Signature == "" {
			return candidates
		}
		var narrowed []int
		for _, i := range candidates {
			if idx.keys[i].Signature == key.Signature {
				narrowed = append(narrowed, i)
			}
		}
		if len(narrowed) > 0 {
			return narrowed
		}
		return candidates
	}

	all := idx.bySignature[key.Signature]
	var codeless []int
	for _, i := range all {
		if idx.keys[i].Code == "" {
			codeless = append(codeless, i)
		}
	}
	if len(codeless) > 0 {
		return codeless
	}
	return all
}
