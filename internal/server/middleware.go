package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// recoveryWithCorrelationID converts a panicking handler into a 500 carrying
// a correlation id. The id is logged next to the panic so support can match
// a user report to the stack trace.
func recoveryWithCorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				correlationID := uuid.NewString()
				log.Printf("panic recovered [%s] %s %s: %v",
					correlationID, c.Request.Method, c.Request.URL.Path, r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":          "Κάτι πήγε στραβά. Προσπαθήστε ξανά.",
					"correlation_id": correlationID,
				})
			}
		}()
		c.Next()
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func respondFieldErrors(c *gin.Context, message string, fields map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": message, "fields": fields})
}
