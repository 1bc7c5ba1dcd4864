package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dixis/marketplace/internal/database"
	"github.com/dixis/marketplace/internal/store"
)

func (s *Server) createProducer(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required"`
		Region string `json:"region"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	producer, err := store.CreateProducer(c.Request.Context(), s.db, req.Name, req.Region)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, producer)
}

func (s *Server) getProducer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid producer ID")
		return
	}

	producer, err := store.GetProducer(c.Request.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, database.ErrProducerNotFound) {
			respondError(c, http.StatusNotFound, "Ο παραγωγός δεν βρέθηκε")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, producer)
}

func (s *Server) createProduct(c *gin.Context) {
	var req struct {
		ProducerID int64  `json:"producer_id" binding:"required"`
		SKU        string `json:"sku" binding:"required"`
		Name       string `json:"name" binding:"required"`
		Unit       string `json:"unit"`
		PriceCents int64  `json:"price_cents" binding:"required,min=1"`
		Stock      int    `json:"stock" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := store.CreateProduct(c.Request.Context(), s.db, store.CreateProductRequest{
		ProducerID: req.ProducerID,
		SKU:        req.SKU,
		Name:       req.Name,
		Unit:       req.Unit,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := store.GetProduct(c.Request.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Το προϊόν δεν βρέθηκε")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) listProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	result, err := store.ListProducts(c.Request.Context(), s.db, page, pageSize)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// updateProductStock is the producer back-office stock edit, guarded by the
// product version so it cannot silently undo a concurrent checkout.
func (s *Server) updateProductStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req struct {
		Stock   int `json:"stock" binding:"min=0"`
		Version int `json:"version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err = store.UpdateStockOptimistic(c.Request.Context(), s.db, id, req.Stock, req.Version)
	if err != nil {
		if errors.Is(err, database.ErrOptimisticLockFailed) {
			respondError(c, http.StatusConflict, "Το προϊόν τροποποιήθηκε από άλλη ενέργεια, ανανεώστε και προσπαθήστε ξανά")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	product, err := store.GetProduct(c.Request.Context(), s.db, id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) createUser(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := store.CreateUser(c.Request.Context(), s.db, req.Email, req.Name)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (s *Server) getUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := store.GetUser(c.Request.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "Ο χρήστης δεν βρέθηκε")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, user)
}
