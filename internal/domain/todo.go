package domain

import "time"

// DefaultCategory is stored when a todo is created without a category.
const DefaultCategory = "None"

// Todo is the storage-agnostic todo item. Both backends map to and from it.
type Todo struct {
	ID          string
	Title       string
	Description string
	Category    string
	IsFinished  bool
	DueDateUTC  *time.Time

	CreatedAtUTC time.Time
	UpdatedAtUTC time.Time
}

// TodoPatch carries optional fields. nil means "not supplied".
type TodoPatch struct {
	Title       *string
	Description *string
	Category    *string
	IsFinished  *bool
	DueDateUTC  *time.Time
}

// IsEmpty reports whether no field is supplied.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.IsFinished == nil && p.DueDateUTC == nil
}

// Apply returns t with every supplied field overwritten. The due date is kept
// in UTC at millisecond precision, the finest both stores keep. Timestamps are untouched.
func (p TodoPatch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.IsFinished != nil {
		t.IsFinished = *p.IsFinished
	}
	if p.DueDateUTC != nil {
		d := p.DueDateUTC.UTC().Truncate(time.Millisecond)
		t.DueDateUTC = &d
	}
	return t
}
