package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixis/marketplace/internal/models"
)

func line(productID int64, qty int) models.CartItem {
	return models.CartItem{
		ProductID:      productID,
		Title:          "Ελαιόλαδο",
		UnitPriceCents: 1250,
		Quantity:       qty,
		ProducerID:     1,
		ProducerName:   "Αγρόκτημα Α",
	}
}

func TestApplyAddInsertsAndIncrements(t *testing.T) {
	items := applyAdd(nil, line(1, 2))
	items = applyAdd(items, line(2, 1))
	items = applyAdd(items, line(1, 3))

	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestApplyAddNonPositiveQuantityRemoves(t *testing.T) {
	items := applyAdd(nil, line(1, 2))
	items = applyAdd(items, line(1, 0))
	assert.Empty(t, items)

	items = applyAdd(nil, line(1, 2))
	items = applyAdd(items, line(1, -4))
	assert.Empty(t, items)
}

func TestApplyQuantitySetAndIdempotence(t *testing.T) {
	items := applyAdd(nil, line(1, 2))

	items = applyQuantity(items, 1, 7)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)

	// Same quantity again leaves the cart unchanged.
	again := applyQuantity(items, 1, 7)
	assert.Equal(t, items, again)
}

func TestApplyQuantityZeroEqualsRemove(t *testing.T) {
	items := applyAdd(nil, line(1, 2))
	items = applyAdd(items, line(2, 1))

	viaUpdate := applyQuantity(append([]models.CartItem(nil), items...), 1, 0)
	viaRemove := applyQuantity(append([]models.CartItem(nil), items...), 1, -1)

	assert.Equal(t, viaUpdate, viaRemove)
	require.Len(t, viaUpdate, 1)
	assert.Equal(t, int64(2), viaUpdate[0].ProductID)
}

func TestApplyQuantityUnknownProductNoop(t *testing.T) {
	items := applyAdd(nil, line(1, 2))
	out := applyQuantity(items, 42, 3)
	assert.Equal(t, items, out)
}

func TestMergeItemsServerWins(t *testing.T) {
	server := []models.CartItem{line(1, 2)}
	local := []models.CartItem{line(2, 5), line(3, 1)}

	merged := MergeItems(server, local)
	assert.Equal(t, server, merged)
}

func TestMergeItemsAdoptsLocalWhenServerEmpty(t *testing.T) {
	local := []models.CartItem{line(2, 5), line(3, 1)}

	merged := MergeItems(nil, local)
	require.Len(t, merged, 2)
	assert.Equal(t, int64(2), merged[0].ProductID)
}

func TestMergeItemsSanitizesLocal(t *testing.T) {
	local := []models.CartItem{
		line(2, 5),
		line(0, 3),  // missing product id
		line(3, 0),  // dead line
		line(2, 1),  // duplicate collapses
	}

	merged := MergeItems(nil, local)
	require.Len(t, merged, 1)
	assert.Equal(t, 6, merged[0].Quantity)
}
