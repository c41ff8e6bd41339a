package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Request headers the browser may send on cross-origin calls. The two
// X-*-Token headers carry student QR tokens and teacher identity tokens.
const allowedHeaders = "Authorization, Content-Type, X-Requested-With, X-Request-ID, X-Student-Token, X-Identity-Token"

const allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// New returns a CORS middleware that honors a list of allowed origins.
// An empty list allows every origin, which is the development default.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		headers := c.Writer.Header()

		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll || hasOrigin(originSet, origin) {
				headers.Set("Access-Control-Allow-Origin", origin)
			}
		} else if allowAll {
			headers.Set("Access-Control-Allow-Origin", "*")
		}

		headers.Set("Vary", "Origin")
		headers.Set("Access-Control-Allow-Credentials", "true")
		headers.Set("Access-Control-Allow-Headers", allowedHeaders)
		headers.Set("Access-Control-Allow-Methods", allowedMethods)
		headers.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	if len(originSet) == 0 {
		return true
	}

	_, ok := originSet[strings.TrimRight(origin, "/")]
	return ok
}
