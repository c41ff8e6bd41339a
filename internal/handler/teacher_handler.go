package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/service"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
	"github.com/haneul-lab/storybook-api/pkg/response"
)

// TeacherHandler exposes the staff roster and approval endpoints.
type TeacherHandler struct {
	teachers *service.TeacherService
}

// NewTeacherHandler constructs TeacherHandler.
func NewTeacherHandler(teachers *service.TeacherService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers}
}

// List godoc
// @Summary List staff accounts
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	teachers, err := h.teachers.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// Register godoc
// @Summary Register a staff account
// @Description The first account ever registered becomes an approved admin.
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body models.RegisterTeacherRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teachers [post]
func (h *TeacherHandler) Register(c *gin.Context) {
	var req models.RegisterTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	teacher, err := h.teachers.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// Approve godoc
// @Summary Approve a pending staff account
// @Tags Teachers
// @Produce json
// @Param email path string true "Account email"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teachers/{email}/approve [post]
func (h *TeacherHandler) Approve(c *gin.Context) {
	actor := teacherFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	teacher, err := h.teachers.Approve(c.Request.Context(), *actor, c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Reject godoc
// @Summary Reject a pending staff account
// @Tags Teachers
// @Produce json
// @Param email path string true "Account email"
// @Success 200 {object} response.Envelope
// @Router /teachers/{email}/reject [post]
func (h *TeacherHandler) Reject(c *gin.Context) {
	actor := teacherFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	teacher, err := h.teachers.Reject(c.Request.Context(), *actor, c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// UpdateRole godoc
// @Summary Change a staff account's role
// @Tags Teachers
// @Accept json
// @Produce json
// @Param email path string true "Account email"
// @Param payload body models.UpdateTeacherRoleRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{email}/role [put]
func (h *TeacherHandler) UpdateRole(c *gin.Context) {
	actor := teacherFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateTeacherRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a role is required"))
		return
	}

	teacher, err := h.teachers.UpdateRole(c.Request.Context(), *actor, c.Param("email"), req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Suspend godoc
// @Summary Suspend an approved staff account
// @Tags Teachers
// @Produce json
// @Param email path string true "Account email"
// @Success 204 {object} response.Envelope
// @Router /teachers/{email}/suspend [post]
func (h *TeacherHandler) Suspend(c *gin.Context) {
	actor := teacherFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.teachers.Suspend(c.Request.Context(), *actor, c.Param("email")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Remove a staff account
// @Tags Teachers
// @Produce json
// @Param email path string true "Account email"
// @Success 204 {object} response.Envelope
// @Router /teachers/{email} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	actor := teacherFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.teachers.Delete(c.Request.Context(), *actor, c.Param("email")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
