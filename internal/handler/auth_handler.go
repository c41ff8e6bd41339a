package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/service"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
	"github.com/haneul-lab/storybook-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the login services.
type AuthHandler struct {
	studentAuth *service.StudentAuthService
	teacherAuth *service.TeacherAuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(studentAuth *service.StudentAuthService, teacherAuth *service.TeacherAuthService) *AuthHandler {
	return &AuthHandler{studentAuth: studentAuth, teacherAuth: teacherAuth}
}

// StudentLogin godoc
// @Summary Authenticate student by PIN
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.StudentLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/student/login [post]
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req models.StudentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	identity, err := h.studentAuth.Login(c.Request.Context(), cacheFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identity, nil)
}

// StudentTokenLogin godoc
// @Summary Authenticate student by QR token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body object true "Token payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/student/token [post]
func (h *AuthHandler) StudentTokenLogin(c *gin.Context) {
	var payload struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a token is required"))
		return
	}

	identity, err := h.studentAuth.TokenLogin(c.Request.Context(), cacheFromContext(c), payload.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identity, nil)
}

// StudentSetPIN godoc
// @Summary First-time PIN setup for a pending student
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SetPINRequest true "PIN payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/student/pin [post]
func (h *AuthHandler) StudentSetPIN(c *gin.Context) {
	var req models.SetPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid PIN payload"))
		return
	}

	identity, err := h.studentAuth.SetPIN(c.Request.Context(), cacheFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identity, nil)
}

// TeacherPINLogin godoc
// @Summary Authenticate teacher by shared PIN
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.TeacherPINLoginRequest true "PIN payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/teacher/pin-login [post]
func (h *AuthHandler) TeacherPINLogin(c *gin.Context) {
	var req models.TeacherPINLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	session, err := h.teacherAuth.PINLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// TeacherLogin godoc
// @Summary Authenticate teacher by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.TeacherCredentialsLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/teacher/login [post]
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	var req models.TeacherCredentialsLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	session, err := h.teacherAuth.CredentialsLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// TeacherFederatedLogin godoc
// @Summary Authenticate teacher by federated identity token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.FederatedLoginRequest true "Identity token payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/teacher/federated [post]
func (h *AuthHandler) TeacherFederatedLogin(c *gin.Context) {
	var req models.FederatedLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "an identity token is required"))
		return
	}

	session, err := h.teacherAuth.FederatedLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// TeacherLogout godoc
// @Summary End the teacher session
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/teacher/logout [post]
func (h *AuthHandler) TeacherLogout(c *gin.Context) {
	if teacherFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.teacherAuth.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TeacherMe godoc
// @Summary Describe the authenticated teacher
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/teacher/me [get]
func (h *AuthHandler) TeacherMe(c *gin.Context) {
	authCtx := teacherFromContext(c)
	if authCtx == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, authCtx, nil)
}
