package models

import "time"

// Chat message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// ChatMessage is one utterance inside an assistant session.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AssistantSession is a bounded conversation between one student and the
// story assistant for one step.
type AssistantSession struct {
	ID            string        `json:"id"`
	StudentName   string        `json:"studentName"`
	StudentNumber int           `json:"studentNumber"`
	Step          int           `json:"step"`
	Title         string        `json:"title"`
	Messages      []ChatMessage `json:"messages"`
	MessageCount  int           `json:"messageCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`

	RowIndex int `json:"-"`
}

// UsageCounter tracks assistant exchanges per student per day.
type UsageCounter struct {
	Date          string `json:"date"`
	StudentName   string `json:"studentName"`
	StudentNumber int    `json:"studentNumber"`
	Count         int    `json:"count"`

	RowIndex int `json:"-"`
}

// ChatRequest sends one student message to the assistant.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Step      int    `json:"step" validate:"required,min=1,max=3"`
	Message   string `json:"message" validate:"required,max=2000"`
}

// ChatResponse carries the assistant's reply and remaining quota.
type ChatResponse struct {
	SessionID      string `json:"sessionId"`
	Reply          string `json:"reply"`
	RemainingToday int    `json:"remainingToday"`
}
