package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dixis/marketplace/internal/models"
)

type cartItemRequest struct {
	ProductID      int64  `json:"product_id" binding:"required"`
	Title          string `json:"title" binding:"required"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"required,min=1"`
	Quantity       int    `json:"quantity"`
	ProducerID     int64  `json:"producer_id" binding:"required"`
	ProducerName   string `json:"producer_name" binding:"required"`
}

func (r cartItemRequest) toModel() models.CartItem {
	return models.CartItem{
		ProductID:      r.ProductID,
		Title:          r.Title,
		UnitPriceCents: r.UnitPriceCents,
		Quantity:       r.Quantity,
		ProducerID:     r.ProducerID,
		ProducerName:   r.ProducerName,
	}
}

func cartResponse(cartID string, items []models.CartItem) gin.H {
	if items == nil {
		items = []models.CartItem{}
	}
	var subtotal int64
	for _, it := range items {
		subtotal += it.SubtotalCents()
	}
	return gin.H{"cart_id": cartID, "items": items, "subtotal_cents": subtotal}
}

func (s *Server) createCart(c *gin.Context) {
	id, err := s.carts.Create(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, cartResponse(id, nil))
}

func (s *Server) getCart(c *gin.Context) {
	cartID := c.Param("id")
	items, err := s.carts.Items(c.Request.Context(), cartID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, cartResponse(cartID, items))
}

func (s *Server) addCartItem(c *gin.Context) {
	cartID := c.Param("id")

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	items, err := s.carts.AddItem(c.Request.Context(), cartID, req.toModel())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, cartResponse(cartID, items))
}

func (s *Server) updateCartItem(c *gin.Context) {
	cartID := c.Param("id")
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Quantity <= 0 is a removal, same as DELETE on the item.
	items, err := s.carts.UpdateQuantity(c.Request.Context(), cartID, productID, req.Quantity)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, cartResponse(cartID, items))
}

func (s *Server) removeCartItem(c *gin.Context) {
	cartID := c.Param("id")
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	items, err := s.carts.RemoveItem(c.Request.Context(), cartID, productID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, cartResponse(cartID, items))
}

// mergeCart reconciles a client's locally persisted cart into the server
// cart at login. The response is the authoritative cart the client replaces
// its local copy with. A failure here must never block login, so the client
// treats non-2xx as log-and-continue; we still log server-side.
func (s *Server) mergeCart(c *gin.Context) {
	cartID := c.Param("id")

	var req struct {
		Items []cartItemRequest `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	local := make([]models.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		local = append(local, it.toModel())
	}

	items, err := s.carts.MergeLocal(c.Request.Context(), cartID, local)
	if err != nil {
		log.Printf("cart merge failed for %s: %v", cartID, err)
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, cartResponse(cartID, items))
}
