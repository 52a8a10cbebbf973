package matchkey

import (
	"github.com/Veraticus/offer-reconciler/internal/model"
)

// DefaultThreshold is the minimum description similarity for a code-less match.
const DefaultThreshold = 0.85

type offerKey struct {
	key   model.MatchKey
	coded bool
}

// Resolver derives match keys for invoice items against a fixed offer.
type Resolver struct {
	codes     map[string]struct{}
	offer     []offerKey
	threshold float64
}

// NewResolver creates a resolver for the given offer items.
func NewResolver(threshold float64, offerItems []model.LineItem) *Resolver {
	r := &Resolver{
		threshold: threshold,
		codes:     make(map[string]struct{}, len(offerItems)),
		offer:     make([]offerKey, 0, len(offerItems)),
	}

	for _, item := range offerItems {
		key := KeyOf(item)
		if key.Code != "" {
			r.codes[key.Code] = struct{}{}
		}
		r.offer = append(r.offer, offerKey{key: key, coded: key.Code != ""})
	}

	return r
}

// KeyOf returns the raw key of an item without consulting any offer.
func KeyOf(item model.LineItem) model.MatchKey {
	return model.MatchKey{
		Code:      NormalizeCode(item.ItemCode),
		Signature: Signature(item.Description),
	}
}

// Resolve derives the key an invoice item should be looked up with.
// It returns false when the item cannot be keyed at all.
func (r *Resolver) Resolve(item model.LineItem) (model.MatchKey, bool) {
	key := KeyOf(item)

	if key.Code != "" {
		if _, known := r.codes[key.Code]; known {
			return key, true
		}
		// Unknown code: a code-less offer line may still describe the same item.
		if sig, ok := r.bestSignature(key.Signature, false); ok {
			return model.MatchKey{Signature: sig}, true
		}
		return key, true
	}

	if sig, ok := r.bestSignature(key.Signature, false); ok {
		return model.MatchKey{Signature: sig}, true
	}
	if sig, ok := r.bestSignature(key.Signature, true); ok {
		return model.MatchKey{Signature: sig}, true
	}

	return model.MatchKey{}, false
}

// bestSignature finds the most similar offer signature at or above the
// threshold. Ties keep the earliest offer line.
func (r *Resolver) bestSignature(signature string, includeCoded bool) (string, bool) {
	if signature == "" {
		return "", false
	}

	best := ""
	bestScore := -1.0
	for _, o := range r.offer {
		if o.coded && !includeCoded {
			continue
		}
		if o.key.Signature == "" {
			continue
		}
		score := Similarity(signature, o.key.Signature)
		if score > bestScore {
			best, bestScore = o.key.Signature, score
		}
	}

	if bestScore < r.threshold {
		return "", false
	}
	return best, true
}
