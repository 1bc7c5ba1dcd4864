package shipping

import (
	"errors"
	"fmt"

	"github.com/dixis/marketplace/internal/models"
)

// QuoteState is the lifecycle of a shipping quote. States are mutually
// exclusive; error and pending both block checkout submission.
type QuoteState string

const (
	StatePending   QuoteState = "pending"
	StateLoading   QuoteState = "loading"
	StateSingle    QuoteState = "single"
	StateBreakdown QuoteState = "breakdown"
	StateError     QuoteState = "error"
)

// QuoteItem is a cart line reduced to what shipping pricing needs.
type QuoteItem struct {
	ProducerID    int64  `json:"producer_id"`
	ProducerName  string `json:"producer_name"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

// QuoteLine is one producer's shipping charge.
type QuoteLine struct {
	ProducerID   int64  `json:"producer_id"`
	ProducerName string `json:"producer_name"`
	Carrier      string `json:"carrier"`
	CostCents    int64  `json:"cost_cents"`
	EtaDays      int    `json:"eta_days"`
	Label        string `json:"label"`
}

// Quote is the resolved breakdown. With a single producer the state is
// "single" and there is exactly one line; with N>=2 producers the state is
// "breakdown" with N lines. Free lines are kept, never omitted, so the line
// costs always sum to TotalCents.
type Quote struct {
	State      QuoteState  `json:"state"`
	PostalCode string      `json:"postal_code,omitempty"`
	Lines      []QuoteLine `json:"lines,omitempty"`
	TotalCents int64       `json:"total_cents"`
}

// Usable reports whether the quote permits checkout to proceed.
func (q *Quote) Usable() bool {
	return q != nil && (q.State == StateSingle || q.State == StateBreakdown)
}

// FieldError is a validation failure tied to a single input field, rendered
// inline by the consuming surface.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var ErrEmptyCart = errors.New("shipping: cannot quote an empty cart")

// freeLabel marks a zero-cost line explicitly so totals stay auditable.
const freeLabel = "Δωρεάν"

// Resolver computes per-producer shipping quotes against the zone rate card.
type Resolver struct {
	// FreeThresholdCents: a producer whose cart subtotal reaches this
	// amount ships free.
	FreeThresholdCents int64
}

func NewResolver(freeThresholdCents int64) *Resolver {
	return &Resolver{FreeThresholdCents: freeThresholdCents}
}

// ItemsFromCart projects cart lines into quote items. Lines from the same
// producer are kept separate here; Resolve aggregates them.
func ItemsFromCart(items []models.CartItem) []QuoteItem {
	out := make([]QuoteItem, 0, len(items))
	for _, it := range items {
		out = append(out, QuoteItem{
			ProducerID:    it.ProducerID,
			ProducerName:  it.ProducerName,
			SubtotalCents: it.SubtotalCents(),
		})
	}
	return out
}

// Resolve computes the quote for items shipped to postalCode. An empty
// postal code yields a pending quote; a malformed one yields an error-state
// quote together with a *FieldError. Producers appear in first-seen order.
func (r *Resolver) Resolve(postalCode string, items []QuoteItem) (*Quote, error) {
	if cleanPostalCode(postalCode) == "" {
		return &Quote{State: StatePending}, nil
	}
	if !ValidPostalCode(postalCode) {
		return &Quote{State: StateError, PostalCode: postalCode},
			&FieldError{Field: "postal_code", Message: "Μη έγκυρος ΤΚ (5 ψηφία)"}
	}
	if len(items) == 0 {
		return &Quote{State: StateError, PostalCode: postalCode}, ErrEmptyCart
	}

	zone := ZoneFor(postalCode)

	subtotals := make(map[int64]int64)
	names := make(map[int64]string)
	var order []int64
	for _, it := range items {
		if _, seen := subtotals[it.ProducerID]; !seen {
			order = append(order, it.ProducerID)
			names[it.ProducerID] = it.ProducerName
		}
		subtotals[it.ProducerID] += it.SubtotalCents
	}

	quote := &Quote{PostalCode: postalCode}
	for _, producerID := range order {
		line := QuoteLine{
			ProducerID:   producerID,
			ProducerName: names[producerID],
			Carrier:      defaultCarrier,
			EtaDays:      zone.EtaDays,
		}
		if subtotals[producerID] >= r.FreeThresholdCents {
			line.CostCents = 0
			line.Label = freeLabel
		} else {
			line.CostCents = zone.RateCents()
			line.Label = zone.Name
		}
		quote.Lines = append(quote.Lines, line)
		quote.TotalCents += line.CostCents
	}

	if len(quote.Lines) == 1 {
		quote.State = StateSingle
	} else {
		quote.State = StateBreakdown
	}
	return quote, nil
}
