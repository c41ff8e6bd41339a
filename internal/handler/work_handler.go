package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/service"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
	"github.com/haneul-lab/storybook-api/pkg/response"
)

// WorkHandler exposes story endpoints for students, teachers and personal mode.
type WorkHandler struct {
	works *service.WorkService
}

// NewWorkHandler constructs WorkHandler.
func NewWorkHandler(works *service.WorkService) *WorkHandler {
	return &WorkHandler{works: works}
}

// Save godoc
// @Summary Save the authenticated student's story step
// @Tags Works
// @Accept json
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Param payload body models.SaveWorkRequest true "Work payload"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /works/{step} [put]
func (h *WorkHandler) Save(c *gin.Context) {
	identity, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.SaveWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid work payload"))
		return
	}
	// The story always belongs to the authenticated student.
	req.Name = identity.Name
	req.Number = identity.Number
	req.Step = step

	work, err := h.works.Save(c.Request.Context(), cacheFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, work, nil)
}

// GetOwn godoc
// @Summary Read the authenticated student's story step
// @Tags Works
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Success 200 {object} response.Envelope
// @Router /works/{step} [get]
func (h *WorkHandler) GetOwn(c *gin.Context) {
	identity, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, work, err := h.works.GetOwn(c.Request.Context(), cacheFromContext(c), identity.Name, identity.Number, step)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"data": payload, "work": work}, nil)
}

// Submit godoc
// @Summary Hand in the authenticated student's story step
// @Tags Works
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /works/{step}/submit [post]
func (h *WorkHandler) Submit(c *gin.Context) {
	identity, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	work, err := h.works.Submit(c.Request.Context(), cacheFromContext(c), identity.Name, identity.Number, step)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, work, nil)
}

// ListByStep godoc
// @Summary List every work in a step for the class overview
// @Tags Works
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Success 200 {object} response.Envelope
// @Router /teacher/works/{step} [get]
func (h *WorkHandler) ListByStep(c *gin.Context) {
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summaries, err := h.works.ListByStep(c.Request.Context(), cacheFromContext(c), step)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// Publish godoc
// @Summary Release a submitted work to the class gallery
// @Tags Works
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Param name path string true "Student name"
// @Param number path int true "Student number"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/works/{step}/{name}/{number}/publish [post]
func (h *WorkHandler) Publish(c *gin.Context) {
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	name, number, err := studentKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	work, err := h.works.Publish(c.Request.Context(), cacheFromContext(c), name, number, step)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, work, nil)
}

// Delete godoc
// @Summary Remove a work
// @Tags Works
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Param name path string true "Student name"
// @Param number path int true "Student number"
// @Success 204 {object} response.Envelope
// @Router /teacher/works/{step}/{name}/{number} [delete]
func (h *WorkHandler) Delete(c *gin.Context) {
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	name, number, err := studentKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.works.Delete(c.Request.Context(), cacheFromContext(c), name, number, step); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Gallery godoc
// @Summary List published works in a step
// @Tags Works
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Success 200 {object} response.Envelope
// @Router /gallery/{step} [get]
func (h *WorkHandler) Gallery(c *gin.Context) {
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summaries, err := h.works.ListByStep(c.Request.Context(), cacheFromContext(c), step)
	if err != nil {
		response.Error(c, err)
		return
	}
	published := make([]models.WorkSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Status == models.WorkPublished {
			published = append(published, s)
		}
	}
	response.JSON(c, http.StatusOK, published, nil)
}

// SavePersonal godoc
// @Summary Save a personal-mode story
// @Tags Works
// @Accept json
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Param payload body object true "Personal work payload"
// @Success 200 {object} response.Envelope
// @Router /personal/works/{step} [post]
func (h *WorkHandler) SavePersonal(c *gin.Context) {
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload struct {
		ID         string                 `json:"id"`
		Data       map[string]interface{} `json:"data" binding:"required"`
		IsComplete bool                   `json:"isComplete"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid work payload"))
		return
	}

	work, err := h.works.SavePersonal(c.Request.Context(), cacheFromContext(c), payload.ID, step, payload.Data, payload.IsComplete)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, work, nil)
}

// GetPersonal godoc
// @Summary Read a personal-mode story by its ID
// @Tags Works
// @Produce json
// @Param step path int true "Story step (1-3)"
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /personal/works/{step}/{id} [get]
func (h *WorkHandler) GetPersonal(c *gin.Context) {
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, work, err := h.works.GetByID(c.Request.Context(), cacheFromContext(c), step, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"data": payload, "work": work}, nil)
}

func stepParam(c *gin.Context) (int, error) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || step < models.StepFirst || step > models.StepLast {
		return 0, appErrors.Clone(appErrors.ErrValidation, "step must be between 1 and 3")
	}
	return step, nil
}
