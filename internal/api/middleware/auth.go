package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyAuth verifies the local API key. The configured key may be a bcrypt
// hash (recognized by its $2 prefix) or a plain value compared in constant
// time.
func APIKeyAuth(configuredKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-Bridge-Key")

		ok := false
		if providedKey != "" {
			if strings.HasPrefix(configuredKey, "$2") {
				ok = bcrypt.CompareHashAndPassword([]byte(configuredKey), []byte(providedKey)) == nil
			} else {
				ok = subtle.ConstantTimeCompare([]byte(configuredKey), []byte(providedKey)) == 1
			}
		}

		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
