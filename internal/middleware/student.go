package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/models"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
	"github.com/haneul-lab/storybook-api/pkg/response"
)

// StudentTokenHeader carries the student's oblique access token, the same
// value embedded in their QR code.
const StudentTokenHeader = "X-Student-Token"

// StudentAuth protects student routes with the roster token. It resolves the
// token against the request cache, so the roster read it triggers is shared
// with the handler behind it.
func StudentAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(StudentTokenHeader)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		rc := CacheFromContext(c)
		if rc == nil {
			response.Error(c, appErrors.ErrInternal)
			c.Abort()
			return
		}

		student, err := rc.FindStudentByToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students"))
			c.Abort()
			return
		}
		if student == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if student.Status != models.StudentActive {
			response.Error(c, appErrors.ErrInactiveAccount)
			c.Abort()
			return
		}

		c.Set(ContextStudentKey, models.StudentIdentity{
			Name:   student.Name,
			Number: student.Number,
			Token:  student.Token,
		})
		c.Next()
	}
}
