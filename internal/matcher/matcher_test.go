package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/offer-reconciler/internal/matchkey"
	"github.com/Veraticus/offer-reconciler/internal/model"
)

func item(doc, code, description string, qty int64) model.LineItem {
	return model.LineItem{
		SourceDocumentID: doc,
		ItemCode:         code,
		Description:      description,
		Quantity:         decimal.NewNullDecimal(decimal.NewFromInt(qty)),
	}
}

func defaultMatcher() *Matcher {
	return New(Options{Threshold: matchkey.DefaultThreshold})
}

func TestMatcher_OneToMany(t *testing.T) {
	offer := []model.LineItem{
		item("offer", "A123", "Widget", 10),
		item("offer", "B456", "Gadget", 5),
	}
	invoices := [][]model.LineItem{
		{item("inv-1", "A-123", "", 4), item("inv-1", "E999", "Unknown", 1)},
		{item("inv-2", "a123", "", 6)},
	}

	result, err := defaultMatcher().Match(offer, invoices)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 2)
	require.Len(t, result.Assignments[0], 2)
	assert.Equal(t, "inv-1", result.Assignments[0][0].SourceDocumentID)
	assert.Equal(t, "inv-2", result.Assignments[0][1].SourceDocumentID)
	assert.Empty(t, result.Assignments[1])

	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, "E999", result.Unmatched[0].Item.ItemCode)
	assert.Equal(t, model.ReasonUnmatched, result.Unmatched[0].Reason)
	assert.Empty(t, result.Notes)
}

func TestMatcher_UnkeyableItem(t *testing.T) {
	offer := []model.LineItem{item("offer", "", "Steel bracket", 1)}
	invoices := [][]model.LineItem{{item("inv", "", "Garden hose", 1)}}

	result, err := defaultMatcher().Match(offer, invoices)
	require.NoError(t, err)

	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, model.ReasonUnkeyable, result.Unmatched[0].Reason)
}

func TestMatcher_DescriptionMatch(t *testing.T) {
	offer := []model.LineItem{item("offer", "", "Steel bracket", 3)}
	invoices := [][]model.LineItem{{item("inv", "", "Bracket, steel", 3)}}

	result, err := defaultMatcher().Match(offer, invoices)
	require.NoError(t, err)

	assert.Len(t, result.Assignments[0], 1)
	assert.Empty(t, result.Unmatched)
}

func TestMatcher_DuplicateCodes(t *testing.T) {
	offer := []model.LineItem{
		item("offer", "A1", "Widget", 2),
		item("offer", "A1", "Widget", 3),
	}
	invoices := [][]model.LineItem{{
		item("inv", "A1", "Widget", 2),
		item("inv", "A1", "Widget", 3),
		item("inv", "A1", "Widget", 1),
	}}

	tests := []struct {
		name     string
		tieBreak TieBreak
		want     []int // quantities landing on each offer line
	}{
		{name: "first unfilled spreads deliveries", tieBreak: TieBreakFirstUnfilled, want: []int{3, 3}},
		{name: "first takes everything", tieBreak: TieBreakFirst, want: []int{6, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(Options{Threshold: matchkey.DefaultThreshold, TieBreak: tt.tieBreak})
			result, err := m.Match(offer, invoices)
			require.NoError(t, err)

			for i, want := range tt.want {
				sum := decimal.Zero
				for _, it := range result.Assignments[i] {
					sum = sum.Add(it.Quantity.Decimal)
				}
				assert.Equal(t, int64(want), sum.IntPart(), "offer line %d", i)
			}
			assert.Len(t, result.Notes, 3)
		})
	}
}

func TestMatcher_DuplicateCodesNarrowedBySignature(t *testing.T) {
	offer := []model.LineItem{
		item("offer", "A1", "Red widget", 2),
		item("offer", "A1", "Blue widget", 2),
	}
	invoices := [][]model.LineItem{{item("inv", "A1", "Widget blue", 2)}}

	result, err := defaultMatcher().Match(offer, invoices)
	require.NoError(t, err)

	assert.Empty(t, result.Assignments[0])
	assert.Len(t, result.Assignments[1], 1)
	assert.Empty(t, result.Notes)
}

func TestMatcher_StrictDisambiguation(t *testing.T) {
	offer := []model.LineItem{
		item("offer", "A1", "Widget", 2),
		item("offer", "A1", "Widget", 3),
	}
	m := New(Options{Threshold: matchkey.DefaultThreshold, Strict: true})

	t.Run("two unfilled lines fail", func(t *testing.T) {
		_, err := m.Match(offer, [][]model.LineItem{{item("inv", "A1", "Widget", 1)}})

		var ambiguous *AmbiguousKeyError
		require.ErrorAs(t, err, &ambiguous)
		assert.Equal(t, []int{0, 1}, ambiguous.Candidates)
		assert.Equal(t, 2, ambiguous.Unfilled)
	})

	t.Run("single unfilled line resolves", func(t *testing.T) {
		offer := []model.LineItem{
			item("offer", "A1", "Widget", 0),
			item("offer", "A1", "Widget", 3),
		}
		result, err := m.Match(offer, [][]model.LineItem{{item("inv", "A1", "Widget", 1)}})
		require.NoError(t, err)
		assert.Len(t, result.Assignments[1], 1)
	})

	t.Run("all lines filled fails", func(t *testing.T) {
		offer := []model.LineItem{
			item("offer", "A1", "Widget", 0),
			item("offer", "A1", "Widget", 1),
		}
		invoices := [][]model.LineItem{{
			item("inv", "A1", "Widget", 1),
			item("inv", "A1", "Widget", 4),
		}}
		_, err := m.Match(offer, invoices)

		var ambiguous *AmbiguousKeyError
		require.ErrorAs(t, err, &ambiguous)
		assert.Equal(t, 0, ambiguous.Unfilled)
		assert.Equal(t, []int{0, 1}, ambiguous.Candidates)
		assert.True(t, ambiguous.Item.Quantity.Decimal.Equal(decimal.NewFromInt(4)))
	})
}

func TestMatcher_InvoiceOrderIndependent(t *testing.T) {
	offer := []model.LineItem{
		item("offer", "X1", "Widget", 1),
		item("offer", "X1", "Widget", 5),
	}
	large := []model.LineItem{item("inv-a", "X1", "Widget", 5)}
	small := []model.LineItem{item("inv-b", "X1", "Widget", 1)}

	tests := []struct {
		name     string
		invoices [][]model.LineItem
	}{
		{name: "sorted", invoices: [][]model.LineItem{large, small}},
		{name: "reversed", invoices: [][]model.LineItem{small, large}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := defaultMatcher().Match(offer, tt.invoices)
			require.NoError(t, err)

			require.Len(t, result.Assignments[0], 1)
			require.Len(t, result.Assignments[1], 1)
			assert.Equal(t, "inv-a", result.Assignments[0][0].SourceDocumentID)
			assert.Equal(t, "inv-b", result.Assignments[1][0].SourceDocumentID)
			require.Len(t, result.Notes, 2)
			assert.Contains(t, result.Notes[0], "inv-a row")
		})
	}

	assert.Equal(t, "inv-b", small[0].SourceDocumentID, "caller slice reordered")
}

func TestMatcher_DoesNotMutateInputs(t *testing.T) {
	offer := []model.LineItem{item("offer", "A1", "Widget", 2)}
	invoice := []model.LineItem{item("inv", "a-1", "widget", 2)}
	before := invoice[0]

	_, err := defaultMatcher().Match(offer, [][]model.LineItem{invoice})
	require.NoError(t, err)

	assert.Equal(t, before, invoice[0])
	assert.Equal(t, "A1", offer[0].ItemCode)
}
