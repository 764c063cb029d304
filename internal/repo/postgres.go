package repo

import (
	"context"
	"errors"
	"strconv"
	"time"

	dom "dualtodo/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const todoColumns = `id, title, description, category, is_finished, due_date_utc, created_at_utc, updated_at_utc`

type PGTodoRepo struct {
	db *pgxpool.Pool
}

func NewPGTodoRepo(db *pgxpool.Pool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	query := `
		INSERT INTO todos (title, description, category, is_finished, due_date_utc, created_at_utc, updated_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + todoColumns
	row := r.db.QueryRow(ctx, query,
		t.Title, t.Description, t.Category, t.IsFinished, t.DueDateUTC, t.CreatedAtUTC, t.UpdatedAtUTC)
	return scanTodo(row)
}

func (r *PGTodoRepo) List(ctx context.Context) ([]dom.Todo, error) {
	rows, err := r.db.Query(ctx, `SELECT `+todoColumns+` FROM todos`)
	if err != nil {
		return nil, err
	}
	return collectTodos(rows)
}

func (r *PGTodoRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]dom.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE due_date_utc BETWEEN $1 AND $2`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	return collectTodos(rows)
}

func (r *PGTodoRepo) GetByID(ctx context.Context, id string) (dom.Todo, error) {
	key, err := parseKey(id)
	if err != nil {
		return dom.Todo{}, err
	}
	row := r.db.QueryRow(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, key)
	return notFound(scanTodo(row))
}

// Update writes only the supplied columns; COALESCE keeps the stored value for NULL parameters.
func (r *PGTodoRepo) Update(ctx context.Context, id string, patch dom.TodoPatch, updatedAt time.Time) (dom.Todo, error) {
	key, err := parseKey(id)
	if err != nil {
		return dom.Todo{}, err
	}
	query := `
		UPDATE todos SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			category = COALESCE($4, category),
			is_finished = COALESCE($5, is_finished),
			due_date_utc = COALESCE($6, due_date_utc),
			updated_at_utc = $7
		WHERE id = $1
		RETURNING ` + todoColumns
	row := r.db.QueryRow(ctx, query, updateArgs(key, patch, updatedAt)...)
	return notFound(scanTodo(row))
}

func (r *PGTodoRepo) Delete(ctx context.Context, id string) (dom.Todo, error) {
	key, err := parseKey(id)
	if err != nil {
		return dom.Todo{}, err
	}
	row := r.db.QueryRow(ctx, `DELETE FROM todos WHERE id = $1 RETURNING `+todoColumns, key)
	return notFound(scanTodo(row))
}

func updateArgs(key int64, patch dom.TodoPatch, updatedAt time.Time) []any {
	return []any{key, patch.Title, patch.Description, patch.Category, patch.IsFinished, patch.DueDateUTC, updatedAt}
}

func parseKey(id string) (int64, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key <= 0 {
		return 0, ErrInvalidID
	}
	return key, nil
}

// scanTodo maps one row in todoColumns order onto the domain entity.
func scanTodo(row pgx.Row) (dom.Todo, error) {
	var (
		t   dom.Todo
		key int64
	)
	err := row.Scan(&key, &t.Title, &t.Description, &t.Category, &t.IsFinished,
		&t.DueDateUTC, &t.CreatedAtUTC, &t.UpdatedAtUTC)
	if err != nil {
		return dom.Todo{}, err
	}
	t.ID = strconv.FormatInt(key, 10)
	t.CreatedAtUTC = t.CreatedAtUTC.UTC()
	t.UpdatedAtUTC = t.UpdatedAtUTC.UTC()
	if t.DueDateUTC != nil {
		d := t.DueDateUTC.UTC()
		t.DueDateUTC = &d
	}
	return t, nil
}

func collectTodos(rows pgx.Rows) ([]dom.Todo, error) {
	defer rows.Close()
	list := []dom.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func notFound(t dom.Todo, err error) (dom.Todo, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Todo{}, ErrNotFound
	}
	return t, err
}
