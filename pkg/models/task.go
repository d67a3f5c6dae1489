// Package models defines the shared data model for foreman workflows.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is an auxiliary input supplied with a task request,
// such as an error screenshot or a log excerpt.
type Attachment struct {
	// Name identifies the attachment (usually a filename).
	Name string `json:"name"`
	// MediaType is the MIME type of the data.
	MediaType string `json:"media_type"`
	// Data holds the attachment content. Binary payloads are base64-encoded.
	Data string `json:"data"`
}

// TaskRequest is the immutable description of what the user asked for.
// It is owned by the WorkflowState that wraps it and never mutated after creation.
type TaskRequest struct {
	// ID uniquely identifies the task across the system.
	ID string `json:"id"`
	// Prompt is the original user prompt, verbatim.
	Prompt string `json:"prompt"`
	// Attachments are optional supporting inputs.
	Attachments []Attachment `json:"attachments,omitempty"`
	// CreatedAt is when the request was accepted.
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskRequest creates a TaskRequest with a fresh ID and timestamp.
func NewTaskRequest(prompt string, attachments []Attachment) TaskRequest {
	return TaskRequest{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
}
