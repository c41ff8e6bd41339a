package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/service"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
	"github.com/haneul-lab/storybook-api/pkg/response"
)

// Context keys for authenticated principals.
const (
	ContextTeacherKey = "currentTeacher"
	ContextStudentKey = "currentStudent"
)

// IdentityTokenHeader optionally carries a federated identity token alongside
// the bearer session.
const IdentityTokenHeader = "X-Identity-Token"

// TeacherAuth protects teacher routes. It accepts either an opaque bearer
// session token or a federated identity token.
func TeacherAuth(auth *service.TeacherAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := bearerToken(c)
		identity := c.GetHeader(IdentityTokenHeader)
		if bearer == "" && identity == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		authCtx, err := auth.Authorize(c.Request.Context(), bearer, identity)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextTeacherKey, authCtx)
		c.Next()
	}
}

// RequireRoles enforces role-based access on top of TeacherAuth.
func RequireRoles(roles ...models.TeacherRole) gin.HandlerFunc {
	allowed := make(map[models.TeacherRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextTeacherKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		authCtx, ok := value.(*models.AuthContext)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[authCtx.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
