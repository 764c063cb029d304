package repo

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	dom "dualtodo/internal/domain"
)

func ptr[T any](v T) *T { return &v }

// newTodo builds a todo the way the service does, with the due date going through Apply.
func newTodo(title string, due *time.Time, at time.Time) dom.Todo {
	return dom.TodoPatch{Title: &title, DueDateUTC: due}.Apply(dom.Todo{
		Category:     dom.DefaultCategory,
		CreatedAtUTC: at,
		UpdatedAtUTC: at,
	})
}

func findByID(list []dom.Todo, id string) (dom.Todo, bool) {
	for _, t := range list {
		if t.ID == id {
			return t, true
		}
	}
	return dom.Todo{}, false
}

// runContract exercises one TodoRepo implementation. The repo must start empty.
func runContract(t *testing.T, r TodoRepo, invalidID, missingID string) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	inDay := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	lastMs := time.Date(2024, 3, 15, 23, 59, 59, 999000000, time.UTC)
	nextDay := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	a, err := r.Create(ctx, newTodo("a", &inDay, at))
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := r.Create(ctx, newTodo("b", &lastMs, at))
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	c, err := r.Create(ctx, newTodo("c", &nextDay, at))
	if err != nil {
		t.Fatalf("create c: %v", err)
	}
	d, err := r.Create(ctx, newTodo("d", nil, at))
	if err != nil {
		t.Fatalf("create d: %v", err)
	}
	if a.ID == "" || a.ID == b.ID || b.ID == c.ID || c.ID == d.ID {
		t.Fatalf("expected unique non-empty ids: %q %q %q %q", a.ID, b.ID, c.ID, d.ID)
	}

	got, err := r.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Fatalf("get after create mismatch:\n got %#v\nwant %#v", got, a)
	}

	all, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 todos, got %d", len(all))
	}

	due, err := r.ListDueBetween(ctx, inDay, lastMs)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 todos due on 2024-03-15, got %d", len(due))
	}
	for _, id := range []string{a.ID, b.ID} {
		if _, ok := findByID(due, id); !ok {
			t.Fatalf("todo %s missing from due list", id)
		}
	}

	subMs := time.Date(2024, 4, 1, 10, 0, 0, 123456789, time.UTC)
	e, err := r.Create(ctx, newTodo("e", &subMs, at))
	if err != nil {
		t.Fatalf("create e: %v", err)
	}
	gotE, err := r.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("get e: %v", err)
	}
	if !reflect.DeepEqual(gotE, e) {
		t.Fatalf("sub-millisecond due date: get after create mismatch:\n got %#v\nwant %#v", gotE, e)
	}
	if _, err := r.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete e: %v", err)
	}

	later := at.Add(time.Hour)
	upd, err := r.Update(ctx, a.ID, dom.TodoPatch{Category: ptr("Work")}, later)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := a
	want.Category = "Work"
	want.UpdatedAtUTC = later
	if !reflect.DeepEqual(upd, want) {
		t.Fatalf("update changed more than category:\n got %#v\nwant %#v", upd, want)
	}

	if _, err := r.Update(ctx, missingID, dom.TodoPatch{}, later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: expected ErrNotFound, got %v", err)
	}
	if _, err := r.GetByID(ctx, invalidID); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("get invalid: expected ErrInvalidID, got %v", err)
	}

	del, err := r.Delete(ctx, a.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !reflect.DeepEqual(del, upd) {
		t.Fatalf("delete snapshot mismatch:\n got %#v\nwant %#v", del, upd)
	}
	if _, err := r.GetByID(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: expected ErrNotFound, got %v", err)
	}
	if _, err := r.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}
