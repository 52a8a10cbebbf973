package matcher

import (
	"fmt"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// AmbiguousKeyError reports an invoice item whose key fits several offer lines
// when strict disambiguation is enabled.
type AmbiguousKeyError struct {
	Key        model.MatchKey
	Item       model.LineItem
	Candidates []int // offer line indexes sharing the key
	Unfilled   int
}

func (e *AmbiguousKeyError) Error() string {
	return fmt.Sprintf("ambiguous key %s for %s row %d: %d offer lines share it, %d unfilled",
		describeKey(e.Key), e.Item.SourceDocumentID, e.Item.SourceRow, len(e.Candidates), e.Unfilled)
}

func describeKey(key model.MatchKey) string {
	if key.Code != "" {
		return fmt.Sprintf("code %q", key.Code)
	}
	return fmt.Sprintf("description %q", key.Signature)
}
