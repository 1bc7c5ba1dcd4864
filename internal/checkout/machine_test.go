package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixis/marketplace/internal/models"
	"github.com/dixis/marketplace/internal/shipping"
)

type fakePlacer struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	lastReq PlaceOrderRequest
}

func (f *fakePlacer) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	block := f.block
	err := f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &models.Order{ID: 42, Status: models.OrderStatusPending}, nil
}

func validAddress() models.Address {
	return models.Address{
		FullName:    "Μαρία Παπαδοπούλου",
		Phone:       "+306912345678",
		Email:       "maria@example.com",
		AddressLine: "Ερμού 15",
		City:        "Αθήνα",
		PostalCode:  "10563",
	}
}

func singleProducerItems() []models.CartItem {
	return []models.CartItem{
		{ProductID: 1, Title: "Μέλι", UnitPriceCents: 1000, Quantity: 1, ProducerID: 1, ProducerName: "A"},
		{ProductID: 2, Title: "Ελιές", UnitPriceCents: 500, Quantity: 1, ProducerID: 1, ProducerName: "A"},
	}
}

func multiProducerItems() []models.CartItem {
	return []models.CartItem{
		{ProductID: 1, Title: "Μέλι", UnitPriceCents: 4000, Quantity: 1, ProducerID: 1, ProducerName: "A"},
		{ProductID: 2, Title: "Ελιές", UnitPriceCents: 500, Quantity: 1, ProducerID: 2, ProducerName: "B"},
	}
}

func newTestMachine(t *testing.T, cfg Config, placer OrderPlacer, items []models.CartItem) *Machine {
	t.Helper()
	resolver := shipping.NewResolver(3500)
	return NewMachine(cfg, resolver, placer, "cart-1", items)
}

func advanceToPayment(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.SetAddress(validAddress()))
	_, err := m.RefreshQuote()
	require.NoError(t, err)
	require.NoError(t, m.ToReview())
	require.NoError(t, m.ToPayment())
	require.NoError(t, m.SelectPayment(models.PaymentMethodCOD))
}

func TestHappyPathToConfirmed(t *testing.T) {
	placer := &fakePlacer{}
	m := newTestMachine(t, Config{AllowMultiProducer: true}, placer, singleProducerItems())

	advanceToPayment(t, m)

	order, err := m.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, m.State())
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, models.PaymentMethodCOD, placer.lastReq.PaymentMethod)
	require.NotNil(t, placer.lastReq.Quote)
	assert.Equal(t, shipping.StateSingle, placer.lastReq.Quote.State)
}

func TestShortPostalCodeBlocksReview(t *testing.T) {
	m := newTestMachine(t, Config{AllowMultiProducer: true}, &fakePlacer{}, singleProducerItems())

	addr := validAddress()
	addr.PostalCode = "123"
	require.NoError(t, m.SetAddress(addr))

	err := m.ToReview()
	require.Error(t, err)
	assert.Equal(t, StateAddressEntry, m.State())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Μη έγκυρος ΤΚ (5 ψηφία)", verr.Fields["postal_code"])
}

func TestReviewRequiresUsableQuote(t *testing.T) {
	m := newTestMachine(t, Config{AllowMultiProducer: true}, &fakePlacer{}, singleProducerItems())

	require.NoError(t, m.SetAddress(validAddress()))
	err := m.ToReview()
	assert.ErrorIs(t, err, ErrQuoteRequired)
	assert.Equal(t, StateAddressEntry, m.State())
}

func TestMultiProducerGuard(t *testing.T) {
	m := newTestMachine(t, Config{AllowMultiProducer: false}, &fakePlacer{}, multiProducerItems())

	require.NoError(t, m.SetAddress(validAddress()))
	_, err := m.RefreshQuote()
	require.NoError(t, err)

	err = m.ToReview()
	assert.ErrorIs(t, err, ErrMultiProducer)
	assert.Equal(t, StateAddressEntry, m.State())

	// The same cart passes when split orders are enabled.
	m2 := newTestMachine(t, Config{AllowMultiProducer: true}, &fakePlacer{}, multiProducerItems())
	require.NoError(t, m2.SetAddress(validAddress()))
	_, err = m2.RefreshQuote()
	require.NoError(t, err)
	require.NoError(t, m2.ToReview())
}

func TestStaleQuoteDiscarded(t *testing.T) {
	m := newTestMachine(t, Config{AllowMultiProducer: true}, &fakePlacer{}, singleProducerItems())

	addr := validAddress()
	addr.PostalCode = "10563"
	require.NoError(t, m.SetAddress(addr))

	resolver := shipping.NewResolver(3500)
	stale, err := resolver.Resolve("84100", shipping.ItemsFromCart(singleProducerItems()))
	require.NoError(t, err)

	// A response for a superseded postal code must not be applied.
	m.ApplyQuote(stale)
	assert.ErrorIs(t, m.ToReview(), ErrQuoteRequired)

	fresh, err := resolver.Resolve("10563", shipping.ItemsFromCart(singleProducerItems()))
	require.NoError(t, err)
	m.ApplyQuote(fresh)
	require.NoError(t, m.ToReview())
}

func TestPostalCodeChangeInvalidatesQuote(t *testing.T) {
	m := newTestMachine(t, Config{AllowMultiProducer: true}, &fakePlacer{}, singleProducerItems())

	require.NoError(t, m.SetAddress(validAddress()))
	_, err := m.RefreshQuote()
	require.NoError(t, err)

	addr := validAddress()
	addr.PostalCode = "54622"
	require.NoError(t, m.SetAddress(addr))

	assert.ErrorIs(t, m.ToReview(), ErrQuoteRequired)
}

func TestSubmitFailureReturnsToPriorStateWithFormIntact(t *testing.T) {
	placer := &fakePlacer{err: errors.New("connection reset")}
	m := newTestMachine(t, Config{AllowMultiProducer: true}, placer, singleProducerItems())

	advanceToPayment(t, m)

	_, err := m.Submit(context.Background())
	require.Error(t, err)

	assert.Equal(t, StatePayment, m.State())
	assert.Equal(t, validAddress(), m.Address())
	assert.Error(t, m.Err())

	// User-triggered retry succeeds without re-entering anything.
	placer.mu.Lock()
	placer.err = nil
	placer.mu.Unlock()

	order, err := m.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, StateConfirmed, m.State())
}

func TestDuplicateSubmitRejected(t *testing.T) {
	placer := &fakePlacer{block: make(chan struct{})}
	m := newTestMachine(t, Config{AllowMultiProducer: true}, placer, singleProducerItems())

	advanceToPayment(t, m)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := m.Submit(context.Background())
		assert.NoError(t, err)
	}()

	// Wait for the first submission to be in flight.
	require.Eventually(t, func() bool {
		return m.State() == StateSubmitting
	}, time.Second, time.Millisecond)

	_, err := m.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(placer.block)
	<-done

	assert.Equal(t, StateConfirmed, m.State())
	placer.mu.Lock()
	defer placer.mu.Unlock()
	assert.Equal(t, 1, placer.calls)
}

func TestBackNavigation(t *testing.T) {
	m := newTestMachine(t, Config{AllowMultiProducer: true}, &fakePlacer{}, singleProducerItems())

	require.NoError(t, m.SetAddress(validAddress()))
	_, err := m.RefreshQuote()
	require.NoError(t, err)
	require.NoError(t, m.ToReview())
	require.NoError(t, m.Back())
	assert.Equal(t, StateAddressEntry, m.State())

	// Quote for the unchanged destination is still valid.
	require.NoError(t, m.ToReview())
	require.NoError(t, m.ToPayment())
	require.NoError(t, m.Back())
	assert.Equal(t, StateReview, m.State())
}

func TestSelectPaymentRejectsUnknownMethod(t *testing.T) {
	m := newTestMachine(t, Config{AllowMultiProducer: true}, &fakePlacer{}, singleProducerItems())

	require.NoError(t, m.SetAddress(validAddress()))
	_, err := m.RefreshQuote()
	require.NoError(t, err)
	require.NoError(t, m.ToReview())
	require.NoError(t, m.ToPayment())

	assert.ErrorIs(t, m.SelectPayment("card"), ErrPaymentMethod)
	assert.Equal(t, StatePayment, m.State())
}

func TestEmptyCartBlocksReview(t *testing.T) {
	m := newTestMachine(t, Config{AllowMultiProducer: true}, &fakePlacer{}, nil)
	require.NoError(t, m.SetAddress(validAddress()))
	assert.ErrorIs(t, m.ToReview(), ErrEmptyCart)
}
