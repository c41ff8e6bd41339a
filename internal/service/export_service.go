package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/requestcache"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
	"github.com/haneul-lab/storybook-api/pkg/export"
)

// Panel keys recognized inside a work payload, in narrative order.
var panelKeys = []struct {
	key     string
	heading string
}{
	{"beginning", "Beginning"},
	{"development", "Development"},
	{"twist", "Twist"},
	{"ending", "Ending"},
}

// ExportService renders roster CSVs and storybook PDFs.
type ExportService struct {
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// RosterCSV renders the student roster as CSV.
func (s *ExportService) RosterCSV(ctx context.Context, rc *requestcache.Cache) ([]byte, error) {
	students, err := rc.Students(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	dataset := export.Dataset{
		Headers: []string{"name", "number", "status", "createdAt", "lastAccessAt"},
	}
	for _, st := range students {
		row := map[string]string{
			"name":      st.Name,
			"number":    strconv.Itoa(st.Number),
			"status":    string(st.Status),
			"createdAt": st.CreatedAt.Format("2006-01-02"),
		}
		if st.LastAccessAt != nil {
			row["lastAccessAt"] = st.LastAccessAt.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster CSV")
	}
	return data, nil
}

// WorksCSV renders a step's submission overview as CSV.
func (s *ExportService) WorksCSV(ctx context.Context, rc *requestcache.Cache, step int) ([]byte, error) {
	if step < models.StepFirst || step > models.StepLast {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step must be between %d and %d", models.StepFirst, models.StepLast))
	}
	works, err := rc.Works(ctx, step)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
	}

	dataset := export.Dataset{
		Headers: []string{"studentName", "studentNumber", "status", "isComplete", "updatedAt"},
	}
	for _, w := range works {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"studentName":   w.StudentName,
			"studentNumber": strconv.Itoa(w.StudentNumber),
			"status":        string(w.Status),
			"isComplete":    strconv.FormatBool(w.IsComplete),
			"updatedAt":     w.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render works CSV")
	}
	return data, nil
}

// StoryPDF renders one student's story for a step as a printable PDF.
func (s *ExportService) StoryPDF(ctx context.Context, rc *requestcache.Cache, name string, number, step int) ([]byte, error) {
	if step < models.StepFirst || step > models.StepLast {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step must be between %d and %d", models.StepFirst, models.StepLast))
	}
	work, err := rc.FindWork(ctx, name, number, step)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
	}
	if work == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "this work does not exist")
	}
	payload, err := work.Payload()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored work data is corrupted")
	}

	doc := storyDocument(work, payload)
	data, err := s.pdf.RenderStory(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render story PDF")
	}
	return data, nil
}

func storyDocument(work *models.Work, payload map[string]interface{}) export.StoryDocument {
	doc := export.StoryDocument{
		Title:  stringField(payload, "title"),
		Author: work.StudentName,
	}
	if doc.Title == "" {
		doc.Title = fmt.Sprintf("%s's Story", work.StudentName)
	}
	if work.StudentName == models.PersonalName {
		doc.Author = ""
		if stringField(payload, "title") == "" {
			doc.Title = "My Story"
		}
	}

	for _, panel := range panelKeys {
		text := stringField(payload, panel.key)
		if text == "" {
			continue
		}
		doc.Panels = append(doc.Panels, export.StoryPanel{Heading: panel.heading, Text: text})
	}
	if len(doc.Panels) == 0 {
		doc.Panels = append(doc.Panels, export.StoryPanel{Text: "(empty story)"})
	}
	return doc
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
