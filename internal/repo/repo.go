package repo

import (
	"context"
	"errors"
	"time"

	dom "dualtodo/internal/domain"
)

var (
	// ErrNotFound is returned when no todo has the given id.
	ErrNotFound = errors.New("todo not found")
	// ErrInvalidID is returned when the id is not in the backend's key format.
	ErrInvalidID = errors.New("invalid id")
)

// TodoRepo is implemented by every storage backend.
type TodoRepo interface {
	Create(ctx context.Context, t dom.Todo) (dom.Todo, error)
	List(ctx context.Context) ([]dom.Todo, error)
	// ListDueBetween returns todos with from <= dueDateUtc <= to.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]dom.Todo, error)
	GetByID(ctx context.Context, id string) (dom.Todo, error)
	// Update overwrites the supplied fields and sets updatedAtUtc in one store operation.
	Update(ctx context.Context, id string, patch dom.TodoPatch, updatedAt time.Time) (dom.Todo, error)
	// Delete removes the todo and returns its last state.
	Delete(ctx context.Context, id string) (dom.Todo, error)
}
