package shipping

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixis/marketplace/internal/models"
)

func newTestResolver() *Resolver {
	return NewResolver(3500)
}

func TestResolveSingleProducer(t *testing.T) {
	r := newTestResolver()

	// Two lines, same producer: one line out, state single.
	quote, err := r.Resolve("10671", []QuoteItem{
		{ProducerID: 1, ProducerName: "Αγρόκτημα Α", SubtotalCents: 1000},
		{ProducerID: 1, ProducerName: "Αγρόκτημα Α", SubtotalCents: 500},
	})
	require.NoError(t, err)

	assert.Equal(t, StateSingle, quote.State)
	require.Len(t, quote.Lines, 1)
	assert.Equal(t, int64(350), quote.Lines[0].CostCents) // Athens flat rate
	assert.Equal(t, quote.Lines[0].CostCents, quote.TotalCents)
	assert.Equal(t, 2, quote.Lines[0].EtaDays)
	assert.Equal(t, "ΕΛΤΑ Courier", quote.Lines[0].Carrier)
}

func TestResolveBreakdownWithFreeThreshold(t *testing.T) {
	r := newTestResolver()

	quote, err := r.Resolve("10671", []QuoteItem{
		{ProducerID: 1, ProducerName: "A", SubtotalCents: 4000},
		{ProducerID: 2, ProducerName: "B", SubtotalCents: 500},
	})
	require.NoError(t, err)

	assert.Equal(t, StateBreakdown, quote.State)
	require.Len(t, quote.Lines, 2)

	// Producer A crossed the €35 threshold: free, but the line stays.
	assert.Equal(t, int64(0), quote.Lines[0].CostCents)
	assert.Equal(t, "Δωρεάν", quote.Lines[0].Label)

	assert.Equal(t, int64(350), quote.Lines[1].CostCents)
	assert.Equal(t, quote.Lines[1].CostCents, quote.TotalCents)
}

func TestResolveLineCostsSumToTotal(t *testing.T) {
	r := newTestResolver()

	quote, err := r.Resolve("84100", []QuoteItem{
		{ProducerID: 1, SubtotalCents: 1200},
		{ProducerID: 2, SubtotalCents: 9000},
		{ProducerID: 3, SubtotalCents: 700},
		{ProducerID: 4, SubtotalCents: 3499},
	})
	require.NoError(t, err)

	assert.Equal(t, StateBreakdown, quote.State)
	require.Len(t, quote.Lines, 4)

	var sum int64
	for _, line := range quote.Lines {
		sum += line.CostCents
	}
	assert.Equal(t, quote.TotalCents, sum)
}

func TestResolvePendingWithoutPostalCode(t *testing.T) {
	r := newTestResolver()

	quote, err := r.Resolve("", []QuoteItem{{ProducerID: 1, SubtotalCents: 100}})
	require.NoError(t, err)
	assert.Equal(t, StatePending, quote.State)
	assert.False(t, quote.Usable())
}

func TestResolveRejectsMalformedPostalCode(t *testing.T) {
	r := newTestResolver()

	for _, code := range []string{"123", "1234", "123456", "1067a", "ΤΚ671"} {
		quote, err := r.Resolve(code, []QuoteItem{{ProducerID: 1, SubtotalCents: 100}})
		assert.Equal(t, StateError, quote.State, "postal code %q", code)
		assert.False(t, quote.Usable())

		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr, "postal code %q", code)
		assert.Equal(t, "postal_code", fieldErr.Field)
	}
}

func TestResolveEmptyCart(t *testing.T) {
	r := newTestResolver()

	quote, err := r.Resolve("10671", nil)
	assert.Equal(t, StateError, quote.State)
	assert.True(t, errors.Is(err, ErrEmptyCart))
}

func TestZoneRates(t *testing.T) {
	tests := []struct {
		postalCode string
		rateCents  int64
		etaDays    int
	}{
		{"10431", 350, 2}, // Athens
		{"54622", 385, 2}, // Thessaloniki
		{"26222", 420, 3}, // Patras
		{"45110", 455, 3}, // Ioannina
		{"84100", 525, 4}, // Syros
		{"99999", 420, 3}, // unknown prefix falls back to major-city rate
	}

	for _, tt := range tests {
		zone := ZoneFor(tt.postalCode)
		assert.Equal(t, tt.rateCents, zone.RateCents(), "postal code %s", tt.postalCode)
		assert.Equal(t, tt.etaDays, zone.EtaDays, "postal code %s", tt.postalCode)
	}
}

func TestValidPostalCode(t *testing.T) {
	assert.True(t, ValidPostalCode("10671"))
	assert.True(t, ValidPostalCode("106 71")) // spaces tolerated
	assert.False(t, ValidPostalCode(""))
	assert.False(t, ValidPostalCode("123"))
	assert.False(t, ValidPostalCode("10-671"))
}

func TestItemsFromCart(t *testing.T) {
	items := ItemsFromCart([]models.CartItem{
		{ProductID: 7, UnitPriceCents: 250, Quantity: 4, ProducerID: 1, ProducerName: "A"},
	})
	require.Len(t, items, 1)
	assert.Equal(t, int64(1000), items[0].SubtotalCents)
}
