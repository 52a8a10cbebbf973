package matchkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

func TestResolver_Resolve(t *testing.T) {
	offer := []model.LineItem{
		{ItemCode: "A-123", Description: "Steel bracket"},
		{Description: "Copper cable 3x1.5"},
		{ItemCode: "B456", Description: "Hex bolt galvanized"},
	}
	r := NewResolver(DefaultThreshold, offer)

	tests := []struct {
		name   string
		item   model.LineItem
		want   model.MatchKey
		wantOK bool
	}{
		{
			name:   "known code with different formatting",
			item:   model.LineItem{ItemCode: "a 123", Description: "bracket steel"},
			want:   model.MatchKey{Code: "A123", Signature: "bracket steel"},
			wantOK: true,
		},
		{
			name:   "no code falls back to code-less offer description",
			item:   model.LineItem{Description: "Cable copper 3x1.5"},
			want:   model.MatchKey{Signature: "3x1 5 cable copper"},
			wantOK: true,
		},
		{
			name:   "unknown code falls back to description",
			item:   model.LineItem{ItemCode: "ZZ9", Description: "copper cable 3x1.5"},
			want:   model.MatchKey{Signature: "3x1 5 cable copper"},
			wantOK: true,
		},
		{
			name:   "unknown code with unrelated description keeps its code",
			item:   model.LineItem{ItemCode: "ZZ9", Description: "Garden hose"},
			want:   model.MatchKey{Code: "ZZ9", Signature: "garden hose"},
			wantOK: true,
		},
		{
			name:   "no code matches coded offer line by description",
			item:   model.LineItem{Description: "galvanized hex bolt"},
			want:   model.MatchKey{Signature: "bolt galvanized hex"},
			wantOK: true,
		},
		{
			name:   "no code below threshold is unkeyable",
			item:   model.LineItem{Description: "Garden hose"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.item)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolver_NearMissDescription(t *testing.T) {
	offer := []model.LineItem{{Description: "Stainless steel washer"}}

	strict := NewResolver(1.0, offer)
	_, ok := strict.Resolve(model.LineItem{Description: "Stainless steel washers"})
	assert.False(t, ok)

	lenient := NewResolver(DefaultThreshold, offer)
	key, ok := lenient.Resolve(model.LineItem{Description: "Stainless steel washers"})
	require.True(t, ok)
	assert.Equal(t, "stainless steel washer", key.Signature)
}
