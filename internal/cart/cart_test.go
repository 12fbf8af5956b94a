package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeAccumulatesQuantity(t *testing.T) {
	got := merge(
		Item{ProductID: "p1", SellerID: "s1", Qty: 2},
		Item{ProductID: "p1", SellerID: "s1", Qty: 3},
	)
	assert.Equal(t, 5, got.Qty)
	assert.Equal(t, "p1", got.ProductID)
	assert.Equal(t, "s1", got.SellerID)
}

func TestMergeUnionsUnitSelections(t *testing.T) {
	got := merge(
		Item{Qty: 2, UnitIDs: []string{"u1", "u2"}},
		Item{Qty: 1, UnitIDs: []string{"u2", "u3"}},
	)
	assert.Equal(t, []string{"u1", "u2", "u3"}, got.UnitIDs, "order preserved, duplicates dropped")
}

func TestMergeKeepsNameUnlessOverwritten(t *testing.T) {
	got := merge(Item{ProductName: "Widget", Qty: 1}, Item{Qty: 1})
	assert.Equal(t, "Widget", got.ProductName)

	got = merge(Item{ProductName: "Widget", Qty: 1}, Item{ProductName: "Widget v2", Qty: 1})
	assert.Equal(t, "Widget v2", got.ProductName)
}

func TestFieldKeyDistinguishesSellers(t *testing.T) {
	assert.NotEqual(t, fieldKey("p1", "s1"), fieldKey("p1", "s2"))
	assert.NotEqual(t, fieldKey("p1", "s1"), fieldKey("p2", "s1"))
	assert.Equal(t, "p1:s1", fieldKey("p1", "s1"))
}
