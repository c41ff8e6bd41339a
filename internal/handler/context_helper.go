package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/middleware"
	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/requestcache"
)

func teacherFromContext(c *gin.Context) *models.AuthContext {
	value, exists := c.Get(middleware.ContextTeacherKey)
	if !exists {
		return nil
	}
	authCtx, ok := value.(*models.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

func studentFromContext(c *gin.Context) (models.StudentIdentity, bool) {
	value, exists := c.Get(middleware.ContextStudentKey)
	if !exists {
		return models.StudentIdentity{}, false
	}
	identity, ok := value.(models.StudentIdentity)
	return identity, ok
}

func cacheFromContext(c *gin.Context) *requestcache.Cache {
	return middleware.CacheFromContext(c)
}
