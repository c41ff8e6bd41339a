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

// AssistantHandler exposes the story assistant to authenticated students.
type AssistantHandler struct {
	assistant *service.AssistantService
}

// NewAssistantHandler constructs AssistantHandler.
func NewAssistantHandler(assistant *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// StartSession godoc
// @Summary Open a new assistant conversation
// @Tags Assistant
// @Accept json
// @Produce json
// @Param payload body object true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /assistant/sessions [post]
func (h *AssistantHandler) StartSession(c *gin.Context) {
	identity, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Step  int    `json:"step" binding:"required"`
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a step is required"))
		return
	}

	session, err := h.assistant.StartSession(c.Request.Context(), identity, payload.Step, payload.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// ListSessions godoc
// @Summary List the student's conversations for a step
// @Tags Assistant
// @Produce json
// @Param step query int true "Story step (1-3)"
// @Success 200 {object} response.Envelope
// @Router /assistant/sessions [get]
func (h *AssistantHandler) ListSessions(c *gin.Context) {
	identity, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	step, err := stepQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	sessions, err := h.assistant.ListSessions(c.Request.Context(), identity, step)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Chat godoc
// @Summary Exchange one message with the assistant
// @Tags Assistant
// @Accept json
// @Produce json
// @Param payload body models.ChatRequest true "Chat payload"
// @Success 200 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	identity, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chat payload"))
		return
	}

	reply, err := h.assistant.Chat(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply, nil)
}

// Quota godoc
// @Summary Report the student's remaining exchanges for today
// @Tags Assistant
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assistant/quota [get]
func (h *AssistantHandler) Quota(c *gin.Context) {
	identity, ok := studentFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	remaining, err := h.assistant.RemainingToday(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"remainingToday": remaining}, nil)
}

func stepQuery(c *gin.Context) (int, error) {
	step, err := strconv.Atoi(c.Query("step"))
	if err != nil || step < models.StepFirst || step > models.StepLast {
		return 0, appErrors.Clone(appErrors.ErrValidation, "step must be between 1 and 3")
	}
	return step, nil
}
