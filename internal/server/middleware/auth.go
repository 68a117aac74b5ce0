package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/botbridge/routecore/pkg/api"
)

// Auth checks for a valid Bearer token in the Authorization header
// against the configured static keys.
func Auth(staticKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Missing Authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid Authorization header format")
			return
		}

		token := parts[1]
		for _, key := range staticKeys {
			if key != "" && subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
				c.Next()
				return
			}
		}

		abortUnauthorized(c, "Invalid API Key")
	}
}

func abortUnauthorized(c *gin.Context, detail string) {
	p := api.NewProblem(http.StatusUnauthorized, "Unauthorized", detail)
	c.AbortWithStatusJSON(p.Status, p)
}
