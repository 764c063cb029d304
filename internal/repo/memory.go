package repo

import (
	"context"
	"sync"
	"time"

	dom "dualtodo/internal/domain"

	"github.com/google/uuid"
)

// MemTodoRepo keeps todos in process memory.
type MemTodoRepo struct {
	mu    sync.RWMutex
	todos map[string]dom.Todo
}

func NewMemTodoRepo() *MemTodoRepo {
	return &MemTodoRepo{todos: make(map[string]dom.Todo)}
}

func (r *MemTodoRepo) Create(_ context.Context, t dom.Todo) (dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.NewString()
	r.todos[t.ID] = clone(t)
	return clone(t), nil
}

func (r *MemTodoRepo) List(_ context.Context) ([]dom.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]dom.Todo, 0, len(r.todos))
	for _, t := range r.todos {
		list = append(list, clone(t))
	}
	return list, nil
}

func (r *MemTodoRepo) ListDueBetween(_ context.Context, from, to time.Time) ([]dom.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := []dom.Todo{}
	for _, t := range r.todos {
		if t.DueDateUTC == nil || t.DueDateUTC.Before(from) || t.DueDateUTC.After(to) {
			continue
		}
		list = append(list, clone(t))
	}
	return list, nil
}

func (r *MemTodoRepo) GetByID(_ context.Context, id string) (dom.Todo, error) {
	if err := uuid.Validate(id); err != nil {
		return dom.Todo{}, ErrInvalidID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.todos[id]
	if !ok {
		return dom.Todo{}, ErrNotFound
	}
	return clone(t), nil
}

func (r *MemTodoRepo) Update(_ context.Context, id string, patch dom.TodoPatch, updatedAt time.Time) (dom.Todo, error) {
	if err := uuid.Validate(id); err != nil {
		return dom.Todo{}, ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[id]
	if !ok {
		return dom.Todo{}, ErrNotFound
	}
	t = patch.Apply(t)
	t.UpdatedAtUTC = updatedAt
	r.todos[id] = t
	return clone(t), nil
}

func (r *MemTodoRepo) Delete(_ context.Context, id string) (dom.Todo, error) {
	if err := uuid.Validate(id); err != nil {
		return dom.Todo{}, ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[id]
	if !ok {
		return dom.Todo{}, ErrNotFound
	}
	delete(r.todos, id)
	return clone(t), nil
}

// clone detaches the due date pointer from the stored value.
func clone(t dom.Todo) dom.Todo {
	if t.DueDateUTC != nil {
		d := *t.DueDateUTC
		t.DueDateUTC = &d
	}
	return t
}
