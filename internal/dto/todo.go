package dto

import (
	"encoding/json"
	"fmt"
	"time"

	dom "dualtodo/internal/domain"
	"dualtodo/internal/utils"
)

// DueDate parses dueDateUtc from JSON as either date-only ("2006-01-02") or RFC3339.
// Date-only is stored as start of that day in UTC. null and "" mean "not supplied".
type DueDate struct{ t *time.Time }

func (d *DueDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dueDateUtc: %w", utils.ErrInvalidTimestamp)
	}
	if raw == nil || *raw == "" {
		d.t = nil
		return nil
	}
	parsed, err := utils.ParseTimestamp(*raw)
	if err != nil {
		return fmt.Errorf("dueDateUtc: %w", err)
	}
	d.t = &parsed
	return nil
}

// Ptr returns *time.Time for use in service/domain.
func (d *DueDate) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	return d.t
}

// Title decodes the title field. A non-string value decodes as "" so the
// service rejects it with its own title message instead of a decoder error.
type Title struct{ s *string }

func (t *Title) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = ""
	}
	t.s = &s
	return nil
}

// Ptr returns the decoded title, or nil when the field was absent or null.
func (t *Title) Ptr() *string {
	if t == nil {
		return nil
	}
	return t.s
}

// CreateTodoRequest is the JSON body for POST /. Title presence is checked by the service
// so that a missing title yields the domain validation message.
type CreateTodoRequest struct {
	Title       *Title   `json:"title" swaggertype:"string"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	IsFinished  *bool    `json:"isFinished"`
	DueDateUTC  *DueDate `json:"dueDateUtc"`
}

func (r CreateTodoRequest) ToPatch() dom.TodoPatch {
	return dom.TodoPatch{
		Title:       r.Title.Ptr(),
		Description: r.Description,
		Category:    r.Category,
		IsFinished:  r.IsFinished,
		DueDateUTC:  r.DueDateUTC.Ptr(),
	}
}

// UpdateTodoRequest is the JSON body for PATCH /:id. nil / null = keep current value.
type UpdateTodoRequest struct {
	Title       *Title   `json:"title" swaggertype:"string"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	IsFinished  *bool    `json:"isFinished"`
	DueDateUTC  *DueDate `json:"dueDateUtc"`
}

func (r UpdateTodoRequest) ToPatch() dom.TodoPatch {
	return dom.TodoPatch{
		Title:       r.Title.Ptr(),
		Description: r.Description,
		Category:    r.Category,
		IsFinished:  r.IsFinished,
		DueDateUTC:  r.DueDateUTC.Ptr(),
	}
}

type TodoResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	IsFinished   bool       `json:"isFinished"`
	DueDateUTC   *time.Time `json:"dueDateUtc,omitempty"`
	CreatedAtUTC time.Time  `json:"createdAtUtc"`
	UpdatedAtUTC time.Time  `json:"updatedAtUtc"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewTodoResponse(t dom.Todo) TodoResponse {
	return TodoResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Category:     t.Category,
		IsFinished:   t.IsFinished,
		DueDateUTC:   t.DueDateUTC,
		CreatedAtUTC: t.CreatedAtUTC,
		UpdatedAtUTC: t.UpdatedAtUTC,
	}
}

func NewTodoResponses(list []dom.Todo) []TodoResponse {
	out := make([]TodoResponse, len(list))
	for i := range list {
		out[i] = NewTodoResponse(list[i])
	}
	return out
}
