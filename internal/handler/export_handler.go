package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/service"
	"github.com/haneul-lab/storybook-api/pkg/response"
)

// ExportHandler serves roster and storybook downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// RosterCSV godoc
// @Summary Download the roster as CSV
// @Tags Exports
// @Produce text/csv
// @Success 200 {file} file
// @Router /exports/students.csv [get]
func (h *ExportHandler) RosterCSV(c *gin.Context) {
	data, err := h.exports.RosterCSV(c.Request.Context(), cacheFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="students.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// WorksCSV godoc
// @Summary Download a step's submission overview as CSV
// @Tags Exports
// @Produce text/csv
// @Param step path int true "Story step (1-3)"
// @Success 200 {file} file
// @Router /exports/works/{step} [get]
func (h *ExportHandler) WorksCSV(c *gin.Context) {
	step, err := stepParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.exports.WorksCSV(c.Request.Context(), cacheFromContext(c), step)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="works-step%d.csv"`, step))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// StoryPDF godoc
// @Summary Download one student's story as a printable PDF
// @Tags Exports
// @Produce application/pdf
// @Param step path int true "Story step (1-3)"
// @Param name path string true "Student name"
// @Param number path int true "Student number"
// @Success 200 {file} file
// @Router /exports/story/{step}/{name}/{number} [get]
func (h *ExportHandler) StoryPDF(c *gin.Context) {
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

	data, err := h.exports.StoryPDF(c.Request.Context(), cacheFromContext(c), name, number, step)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="story-step%d.pdf"`, step))
	c.Data(http.StatusOK, "application/pdf", data)
}
