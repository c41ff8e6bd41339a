package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/service"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
	"github.com/haneul-lab/storybook-api/pkg/response"
)

// StudentHandler exposes the teacher-facing roster endpoints.
type StudentHandler struct {
	students *service.StudentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List the roster
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.students.List(c.Request.Context(), cacheFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Register godoc
// @Summary Register one student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var req models.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.students.Register(c.Request.Context(), cacheFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// BulkRegister godoc
// @Summary Import students from CSV
// @Description Accepts text/csv lines of the form name,number[,pin]
// @Tags Students
// @Accept plain
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) BulkRegister(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read CSV body"))
		return
	}

	result, err := h.students.BulkRegister(c.Request.Context(), cacheFromContext(c), string(body))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Deactivate godoc
// @Summary Deactivate a student
// @Tags Students
// @Produce json
// @Param name path string true "Student name"
// @Param number path int true "Student number"
// @Success 204 {object} response.Envelope
// @Router /students/{name}/{number}/deactivate [post]
func (h *StudentHandler) Deactivate(c *gin.Context) {
	name, number, err := studentKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.Deactivate(c.Request.Context(), cacheFromContext(c), name, number); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reactivate godoc
// @Summary Reactivate a student
// @Tags Students
// @Produce json
// @Param name path string true "Student name"
// @Param number path int true "Student number"
// @Success 204 {object} response.Envelope
// @Router /students/{name}/{number}/reactivate [post]
func (h *StudentHandler) Reactivate(c *gin.Context) {
	name, number, err := studentKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.Reactivate(c.Request.Context(), cacheFromContext(c), name, number); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ResetPIN godoc
// @Summary Set a fresh PIN on behalf of a student
// @Tags Students
// @Accept json
// @Produce json
// @Param name path string true "Student name"
// @Param number path int true "Student number"
// @Success 204 {object} response.Envelope
// @Router /students/{name}/{number}/pin [put]
func (h *StudentHandler) ResetPIN(c *gin.Context) {
	name, number, err := studentKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a PIN is required"))
		return
	}

	if err := h.students.ResetPIN(c.Request.Context(), cacheFromContext(c), name, number, payload.PIN); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Remove a student from the roster
// @Tags Students
// @Produce json
// @Param name path string true "Student name"
// @Param number path int true "Student number"
// @Success 204 {object} response.Envelope
// @Router /students/{name}/{number} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	name, number, err := studentKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.Delete(c.Request.Context(), cacheFromContext(c), name, number); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func studentKey(c *gin.Context) (string, int, error) {
	name := c.Param("name")
	number, err := strconv.Atoi(c.Param("number"))
	if name == "" || err != nil {
		return "", 0, appErrors.Clone(appErrors.ErrValidation, "a student name and number are required")
	}
	return name, number, nil
}
