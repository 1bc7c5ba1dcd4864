// Package server exposes the marketplace REST API: session carts, shipping
// quotes, checkout and order lifecycle, and the minimal catalog the checkout
// flow depends on.
package server

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"

	"github.com/dixis/marketplace/internal/cart"
	"github.com/dixis/marketplace/internal/checkout"
	"github.com/dixis/marketplace/internal/config"
	"github.com/dixis/marketplace/internal/shipping"
)

type Server struct {
	router   *gin.Engine
	db       *sql.DB
	redis    *redis.Client
	carts    *cart.Store
	resolver *shipping.Resolver
	cfg      *config.Config
}

func NewServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client) *Server {
	// gin shares a validator instance behind its binding tags; install the
	// Greek format rules on it so request structs can use gr_phone and
	// gr_postal.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		checkout.RegisterGreekFormats(v)
	}

	s := &Server{
		router:   gin.Default(),
		db:       db,
		redis:    redisClient,
		carts:    cart.NewStore(redisClient, cfg.Redis.GuestCartTTL),
		resolver: shipping.NewResolver(cfg.Checkout.FreeShippingThresholdCents),
		cfg:      cfg,
	}
	s.router.Use(recoveryWithCorrelationID())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		api.POST("/carts", s.createCart)
		api.GET("/carts/:id", s.getCart)
		api.POST("/carts/:id/items", s.addCartItem)
		api.PATCH("/carts/:id/items/:productID", s.updateCartItem)
		api.DELETE("/carts/:id/items/:productID", s.removeCartItem)
		api.POST("/carts/:id/merge", s.mergeCart)

		api.POST("/shipping/quote", s.shippingQuote)

		api.POST("/orders", s.createOrder)
		api.GET("/orders", s.listOrders)
		api.GET("/orders/:id", s.getOrder)
		api.PATCH("/orders/:id/status", s.updateOrderStatus)

		api.POST("/producers", s.createProducer)
		api.GET("/producers/:id", s.getProducer)
		api.POST("/products", s.createProduct)
		api.GET("/products", s.listProducts)
		api.GET("/products/:id", s.getProduct)
		api.PATCH("/products/:id/stock", s.updateProductStock)

		api.POST("/users", s.createUser)
		api.GET("/users/:id", s.getUser)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "database unavailable"})
		return
	}
	if err := s.redis.Ping(c.Request.Context()).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "redis unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "dixis"})
}

func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
