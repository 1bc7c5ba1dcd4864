package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/dixis/marketplace/internal/checkout"
	"github.com/dixis/marketplace/internal/database"
	"github.com/dixis/marketplace/internal/models"
	"github.com/dixis/marketplace/internal/shipping"
	"github.com/dixis/marketplace/internal/store"
)

type createOrderRequest struct {
	CartID        string         `json:"cart_id" binding:"required"`
	UserID        *int64         `json:"user_id"`
	Address       models.Address `json:"shipping_address"`
	PaymentMethod string         `json:"payment_method" binding:"required"`
	Notes         string         `json:"notes"`
}

// createOrder drives one checkout attempt through the state machine:
// address validation, quote resolution, the multi-producer guard, payment
// selection and submission. Failures map to 422 (field-level), 409
// (business-rule refusal) or 500; the cart is cleared only after a
// confirmed order.
func (s *Server) createOrder(c *gin.Context) {
	ctx := c.Request.Context()

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			// The struct is populated even when validation fails; rebuild
			// the field map so messages stay consistent with the machine's.
			if fields := checkout.ValidateAddress(req.Address); len(fields) > 0 {
				respondFieldErrors(c, "Μη έγκυρα στοιχεία παραγγελίας", fields)
				return
			}
			respondError(c, http.StatusUnprocessableEntity, "Μη έγκυρα στοιχεία παραγγελίας")
			return
		}
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	items, err := s.carts.Items(ctx, req.CartID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	m := checkout.NewMachine(
		checkout.Config{AllowMultiProducer: s.cfg.Checkout.AllowMultiProducer},
		s.resolver,
		&store.Placer{DB: s.db},
		req.CartID,
		items,
	)
	m.SetUser(req.UserID)
	m.SetNotes(req.Notes)

	if err := m.SetAddress(req.Address); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := m.RefreshQuote(); err != nil {
		s.respondCheckoutError(c, err)
		return
	}
	if err := m.ToReview(); err != nil {
		s.respondCheckoutError(c, err)
		return
	}
	if err := m.ToPayment(); err != nil {
		s.respondCheckoutError(c, err)
		return
	}
	if err := m.SelectPayment(req.PaymentMethod); err != nil {
		s.respondCheckoutError(c, err)
		return
	}

	order, err := m.Submit(ctx)
	if err != nil {
		s.respondCheckoutError(c, err)
		return
	}

	// Checkout destroys the cart; a failure here is not worth failing the
	// already-created order over.
	if err := s.carts.Clear(ctx, req.CartID); err != nil {
		log.Printf("clear cart %s after order %d: %v", req.CartID, order.ID, err)
	}

	c.JSON(http.StatusCreated, order)
}

func (s *Server) respondCheckoutError(c *gin.Context, err error) {
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		respondFieldErrors(c, "Μη έγκυρα στοιχεία παραγγελίας", verr.Fields)
		return
	}

	var fieldErr *shipping.FieldError
	if errors.As(err, &fieldErr) {
		respondFieldErrors(c, "Μη έγκυρα στοιχεία αποστολής", map[string]string{
			fieldErr.Field: fieldErr.Message,
		})
		return
	}

	switch {
	case errors.Is(err, checkout.ErrMultiProducer):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, shipping.ErrEmptyCart):
		respondError(c, http.StatusConflict, "Το καλάθι είναι κενό")
	case errors.Is(err, checkout.ErrPaymentMethod):
		respondFieldErrors(c, "Μη έγκυρα στοιχεία παραγγελίας", map[string]string{
			"payment_method": "Μη υποστηριζόμενος τρόπος πληρωμής",
		})
	case errors.Is(err, checkout.ErrQuoteRequired):
		respondError(c, http.StatusConflict, "Δεν υπάρχει έγκυρος υπολογισμός μεταφορικών")
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		respondError(c, http.StatusConflict, "Η παραγγελία υποβάλλεται ήδη")
	case errors.Is(err, database.ErrInsufficientStock):
		respondError(c, http.StatusConflict, "Ανεπαρκές απόθεμα για κάποιο προϊόν")
	case errors.Is(err, database.ErrProductNotFound):
		respondError(c, http.StatusConflict, "Κάποιο προϊόν δεν είναι πλέον διαθέσιμο")
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := store.GetOrder(c.Request.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "Η παραγγελία δεν βρέθηκε")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":        order,
		"status_label": order.Status.Label(),
		"allowed_next": order.Status.Next(),
	})
}

func (s *Server) listOrders(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	page, err := store.ListOrdersCursor(c.Request.Context(), s.db, userID, c.Query("cursor"), limit)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, page)
}

// updateOrderStatus steps an order along the transition table. The table is
// enforced here server-side; whatever buttons a UI offered, a step outside
// the table is rejected with 409.
func (s *Server) updateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	next, err := models.ParseStatus(req.Status)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := store.UpdateOrderStatus(c.Request.Context(), s.db, id, next)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrOrderNotFound):
			respondError(c, http.StatusNotFound, "Η παραγγελία δεν βρέθηκε")
		case errors.Is(err, database.ErrInvalidTransition):
			respondError(c, http.StatusConflict, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":        order,
		"status_label": order.Status.Label(),
		"allowed_next": order.Status.Next(),
	})
}
