// Package checkout sequences the order-assembly flow: address entry, quote
// confirmation, payment selection and submission. The machine is the single
// place that orders these steps; handlers drive it and render its state.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dixis/marketplace/internal/models"
	"github.com/dixis/marketplace/internal/shipping"
)

type State string

const (
	StateAddressEntry State = "address_entry"
	StateReview       State = "review"
	StatePayment      State = "payment"
	StateSubmitting   State = "submitting"
	StateConfirmed    State = "confirmed"
)

var (
	// ErrMultiProducer is the fixed refusal surfaced when split orders are
	// disabled and the cart spans several producers.
	ErrMultiProducer = errors.New("Η παραγγελία περιέχει προϊόντα από πολλούς παραγωγούς· ολοκληρώστε ξεχωριστές παραγγελίες ανά παραγωγό")

	ErrQuoteRequired      = errors.New("checkout: a resolved shipping quote is required")
	ErrEmptyCart          = errors.New("checkout: the cart is empty")
	ErrSubmissionInFlight = errors.New("checkout: a submission is already in flight")
	ErrPaymentMethod      = errors.New("checkout: unsupported payment method")
)

// ValidationError carries field-level messages for inline rendering.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: %d invalid fields", len(e.Fields))
}

// InvalidStateError reports an operation attempted outside its state.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("checkout: %s not allowed in state %s", e.Op, e.State)
}

// PlaceOrderRequest is what the machine hands to the order backend on
// submission.
type PlaceOrderRequest struct {
	CartID        string
	UserID        *int64
	Items         []models.CartItem
	Address       models.Address
	Quote         *shipping.Quote
	PaymentMethod string
	Notes         string
}

// OrderPlacer persists a submitted order. Implemented by the Postgres order
// store; tests substitute fakes.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error)
}

type Config struct {
	AllowMultiProducer bool
}

// Machine walks one checkout attempt through its states. A failed step
// leaves the machine in the state it was attempted from with all entered
// values intact; nothing is reset on error.
type Machine struct {
	mu       sync.Mutex
	cfg      Config
	resolver *shipping.Resolver
	placer   OrderPlacer

	state   State
	cartID  string
	userID  *int64
	items   []models.CartItem
	addr    models.Address
	notes   string
	payment string
	quote   *shipping.Quote
	order   *models.Order
	lastErr error
}

func NewMachine(cfg Config, resolver *shipping.Resolver, placer OrderPlacer, cartID string, items []models.CartItem) *Machine {
	return &Machine{
		cfg:      cfg,
		resolver: resolver,
		placer:   placer,
		state:    StateAddressEntry,
		cartID:   cartID,
		items:    items,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the last failure, cleared by the next successful transition.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) Address() models.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

func (m *Machine) Quote() *shipping.Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quote
}

// Order returns the created order once the machine is Confirmed.
func (m *Machine) Order() *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order
}

func (m *Machine) SetUser(userID *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = userID
}

func (m *Machine) SetNotes(notes string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = notes
}

// SetAddress records form input. Permitted while in AddressEntry only; a
// postal code change invalidates any quote held for the old destination.
func (m *Machine) SetAddress(addr models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAddressEntry {
		return &InvalidStateError{Op: "set address", State: m.state}
	}
	if m.quote != nil && m.quote.PostalCode != addr.PostalCode {
		m.quote = nil
	}
	m.addr = addr
	return nil
}

// RefreshQuote resolves shipping for the current postal code and applies the
// result.
func (m *Machine) RefreshQuote() (*shipping.Quote, error) {
	m.mu.Lock()
	postal := m.addr.PostalCode
	items := shipping.ItemsFromCart(m.items)
	m.mu.Unlock()

	quote, err := m.resolver.Resolve(postal, items)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		return quote, err
	}
	m.ApplyQuote(quote)
	return quote, nil
}

// ApplyQuote installs an asynchronously obtained quote. A quote computed for
// a postal code the form no longer holds is stale and silently discarded:
// only the latest request's result wins.
func (m *Machine) ApplyQuote(quote *shipping.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if quote == nil || quote.PostalCode != m.addr.PostalCode {
		return
	}
	m.quote = quote
	m.lastErr = nil
}

// ToReview validates the entered address and the held quote and advances.
// Every guard failure keeps the machine in AddressEntry with the form
// intact.
func (m *Machine) ToReview() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAddressEntry {
		return m.fail(&InvalidStateError{Op: "review", State: m.state})
	}
	if len(m.items) == 0 {
		return m.fail(ErrEmptyCart)
	}
	if fields := ValidateAddress(m.addr); fields != nil {
		return m.fail(&ValidationError{Fields: fields})
	}
	if !m.cfg.AllowMultiProducer && countProducers(m.items) > 1 {
		return m.fail(ErrMultiProducer)
	}
	if !m.quote.Usable() || m.quote.PostalCode != m.addr.PostalCode {
		return m.fail(ErrQuoteRequired)
	}

	m.state = StateReview
	m.lastErr = nil
	return nil
}

// Back steps Review to AddressEntry or Payment to Review.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateReview:
		m.state = StateAddressEntry
	case StatePayment:
		m.state = StateReview
	default:
		return &InvalidStateError{Op: "back", State: m.state}
	}
	m.lastErr = nil
	return nil
}

func (m *Machine) ToPayment() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReview {
		return m.fail(&InvalidStateError{Op: "payment", State: m.state})
	}
	m.state = StatePayment
	m.lastErr = nil
	return nil
}

// SelectPayment picks the payment method. Cash on delivery is the only
// method handled here; anything else belongs to the external provider.
func (m *Machine) SelectPayment(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePayment {
		return m.fail(&InvalidStateError{Op: "select payment", State: m.state})
	}
	if method != models.PaymentMethodCOD {
		return m.fail(ErrPaymentMethod)
	}
	m.payment = method
	m.lastErr = nil
	return nil
}

// Submit places the order. Exactly one submission may be in flight; a second
// call while Submitting fails fast. On backend failure the machine returns
// to Payment with every entered value preserved for a user-triggered retry.
func (m *Machine) Submit(ctx context.Context) (*models.Order, error) {
	m.mu.Lock()
	if m.state == StateSubmitting {
		m.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if m.state != StatePayment {
		err := &InvalidStateError{Op: "submit", State: m.state}
		m.lastErr = err
		m.mu.Unlock()
		return nil, err
	}
	if m.payment == "" {
		m.lastErr = ErrPaymentMethod
		m.mu.Unlock()
		return nil, ErrPaymentMethod
	}

	prior := m.state
	m.state = StateSubmitting
	req := PlaceOrderRequest{
		CartID:        m.cartID,
		UserID:        m.userID,
		Items:         m.items,
		Address:       m.addr,
		Quote:         m.quote,
		PaymentMethod: m.payment,
		Notes:         m.notes,
	}
	m.mu.Unlock()

	order, err := m.placer.PlaceOrder(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = prior
		m.lastErr = err
		return nil, err
	}

	m.state = StateConfirmed
	m.order = order
	m.lastErr = nil
	return order, nil
}

// fail records err without leaving the current state. Callers hold m.mu.
func (m *Machine) fail(err error) error {
	m.lastErr = err
	return err
}

func countProducers(items []models.CartItem) int {
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		seen[it.ProducerID] = struct{}{}
	}
	return len(seen)
}
