package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/requestcache"
)

// ContextCacheKey is the gin context key storing the per-request read cache.
const ContextCacheKey = "requestCache"

// RequestCache attaches a fresh read cache to every request. The cache lives
// exactly as long as the request; nothing is shared across requests.
func RequestCache(students requestcache.StudentLister, works requestcache.WorkLister, onLoad, onHit func(entity string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := requestcache.New(students, works)
		rc.OnLoad = onLoad
		rc.OnHit = onHit
		c.Set(ContextCacheKey, rc)
		c.Next()

		// The cache dies with the request; drop the row slices now
		// instead of waiting for the context to be collected.
		rc.Clear()
	}
}

// CacheFromContext returns the request's read cache, or nil when the
// middleware did not run.
func CacheFromContext(c *gin.Context) *requestcache.Cache {
	value, exists := c.Get(ContextCacheKey)
	if !exists {
		return nil
	}
	rc, ok := value.(*requestcache.Cache)
	if !ok {
		return nil
	}
	return rc
}
