package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dixis/marketplace/internal/shipping"
)

type shippingQuoteRequest struct {
	PostalCode string               `json:"postal_code"`
	Items      []shipping.QuoteItem `json:"items" binding:"required,min=1,dive"`
}

// shippingQuote resolves a per-producer breakdown for the given destination.
// A malformed postal code comes back 422 with a field-level message; the
// quote body always carries its state so clients can gate submission on it.
func (s *Server) shippingQuote(c *gin.Context) {
	var req shippingQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := s.resolver.Resolve(req.PostalCode, req.Items)
	if err != nil {
		var fieldErr *shipping.FieldError
		if errors.As(err, &fieldErr) {
			respondFieldErrors(c, "Μη έγκυρα στοιχεία αποστολής", map[string]string{
				fieldErr.Field: fieldErr.Message,
			})
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, quote)
}
