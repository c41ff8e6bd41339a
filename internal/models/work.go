package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorkStatus enumerates story publication states.
type WorkStatus string

const (
	WorkDraft     WorkStatus = "draft"
	WorkSubmitted WorkStatus = "submitted"
	WorkPublished WorkStatus = "published"
)

// Steps of the story authoring flow.
const (
	StepFirst = 1
	StepLast  = 3
)

// PersonalName and PersonalNumber form the sentinel identity used for works
// authored outside a registered roster ("personal mode").
const (
	PersonalName   = "_personal"
	PersonalNumber = 0
)

// Work is one story step for one student. At most one row exists per
// (student, step); ID is a stable identifier independent of row position.
type Work struct {
	StudentName   string     `json:"studentName"`
	StudentNumber int        `json:"studentNumber"`
	ID            string     `json:"id"`
	RawData       string     `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	IsComplete    bool       `json:"isComplete"`
	Status        WorkStatus `json:"status"`

	Step     int `json:"step"`
	RowIndex int `json:"-"`

	parsed map[string]interface{}
}

// Payload deserializes the opaque work data. Parsing happens on demand so
// scans that never match a row do not pay for its payload.
func (w *Work) Payload() (map[string]interface{}, error) {
	if w.parsed != nil {
		return w.parsed, nil
	}
	if w.RawData == "" {
		return map[string]interface{}{}, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(w.RawData), &data); err != nil {
		return nil, fmt.Errorf("parse work payload: %w", err)
	}
	w.parsed = data
	return data, nil
}

// SaveWorkRequest upserts one story step.
type SaveWorkRequest struct {
	Name       string                 `json:"name" validate:"required"`
	Number     int                    `json:"number" validate:"min=0,max=100"`
	Step       int                    `json:"step" validate:"required,min=1,max=3"`
	Data       map[string]interface{} `json:"data" validate:"required"`
	IsComplete bool                   `json:"isComplete"`
}

// WorkSummary is the teacher-facing listing row; payloads stay unparsed.
type WorkSummary struct {
	StudentName   string     `json:"studentName"`
	StudentNumber int        `json:"studentNumber"`
	ID            string     `json:"id"`
	Step          int        `json:"step"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	IsComplete    bool       `json:"isComplete"`
	Status        WorkStatus `json:"status"`
}
