package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"dualtodo/internal/cache"
	dom "dualtodo/internal/domain"
	"dualtodo/internal/repo"
	"dualtodo/internal/utils"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "dualtodo/internal/service"

// TodoService implements the todo contract on top of one storage backend.
type TodoService struct {
	backend string
	repo    repo.TodoRepo
	cache   *cache.TodoCache
	sf      singleflight.Group
	log     *log.Entry
	tracer  trace.Tracer
	now     func() time.Time
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled.
func NewTodoService(backend string, r repo.TodoRepo, c *cache.TodoCache, logger *log.Logger) *TodoService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &TodoService{
		backend: backend,
		repo:    r,
		cache:   c,
		log:     logger.WithField("backend", backend),
		tracer:  otel.Tracer(tracerName),
		now:     func() time.Time { return time.Now() },
	}
}

// Backend returns the name the service was created with.
func (s *TodoService) Backend() string { return s.backend }

// Create persists a new todo. Title is required; other fields fall back to defaults.
func (s *TodoService) Create(ctx context.Context, in dom.TodoPatch) (dom.Todo, error) {
	ctx, span := s.start(ctx, "Create")
	defer span.End()

	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return dom.Todo{}, s.fail(span, "", validation("title is required for create new todo"), "")
	}
	now := s.clock()
	t := in.Apply(dom.Todo{
		Category:     dom.DefaultCategory,
		CreatedAtUTC: now,
		UpdatedAtUTC: now,
	})

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return dom.Todo{}, s.fail(span, "", err, "Failed to create todo")
	}
	span.SetAttributes(attribute.String("todo.id", created.ID))
	s.invalidateCache(ctx)
	return created, nil
}

// ListAll returns every todo of the backend in store order.
func (s *TodoService) ListAll(ctx context.Context) ([]dom.Todo, error) {
	ctx, span := s.start(ctx, "ListAll")
	defer span.End()

	if s.cache == nil {
		list, err := s.repo.List(ctx)
		if err != nil {
			return nil, s.fail(span, "", err, "Failed to fetch todos")
		}
		return list, nil
	}
	list, err := s.readThrough(ctx, "list", s.cache.GetList, s.cache.SetList, s.repo.List)
	if err != nil {
		return nil, s.fail(span, "", err, "Failed to fetch todos")
	}
	return list, nil
}

// ListByDueDate returns the todos due within the UTC calendar day of date.
func (s *TodoService) ListByDueDate(ctx context.Context, date string) ([]dom.Todo, error) {
	ctx, span := s.start(ctx, "ListByDueDate")
	defer span.End()

	if strings.TrimSpace(date) == "" {
		return nil, s.fail(span, "", validation("dueDate is required"), "")
	}
	day, err := utils.ParseTimestamp(date)
	if err != nil {
		return nil, s.fail(span, "", validation("dueDateUtc must be a date (YYYY-MM-DD) or RFC3339 datetime"), "")
	}
	from, to := utils.DayRangeUTC(day)
	span.SetAttributes(attribute.String("todo.due_day", from.Format(time.DateOnly)))

	if s.cache == nil {
		list, err := s.repo.ListDueBetween(ctx, from, to)
		if err != nil {
			return nil, s.fail(span, "", err, "Failed to fetch todos")
		}
		return list, nil
	}
	list, err := s.readThrough(ctx, "due:"+from.Format(time.DateOnly),
		func(ctx context.Context) ([]dom.Todo, error) { return s.cache.GetDue(ctx, from) },
		func(ctx context.Context, gen int64, list []dom.Todo) error { return s.cache.SetDue(ctx, gen, from, list) },
		func(ctx context.Context) ([]dom.Todo, error) { return s.repo.ListDueBetween(ctx, from, to) },
	)
	if err != nil {
		return nil, s.fail(span, "", err, "Failed to fetch todos")
	}
	return list, nil
}

// readThrough serves one cached read. Concurrent callers of the same key share
// a single store load, which runs detached from any one caller's cancellation.
// A fill is dropped when a write invalidated the cache during the load.
func (s *TodoService) readThrough(
	ctx context.Context,
	key string,
	get func(context.Context) ([]dom.Todo, error),
	set func(context.Context, int64, []dom.Todo) error,
	load func(context.Context) ([]dom.Todo, error),
) ([]dom.Todo, error) {
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		if list, err := get(ctx); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("cache get")
		} else if list != nil {
			return list, nil
		}

		gen, genErr := s.cache.Generation(ctx)
		if genErr != nil {
			s.log.WithError(genErr).WithField("key", key).Warn("cache generation")
		}
		list, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if genErr != nil {
			return list, nil
		}
		switch err := set(ctx, gen, list); {
		case errors.Is(err, cache.ErrStale):
			s.log.WithField("key", key).Debug("cache fill skipped, invalidated during load")
		case err != nil:
			s.log.WithError(err).WithField("key", key).Warn("cache set")
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Todo), nil
}

func (s *TodoService) GetByID(ctx context.Context, id string) (dom.Todo, error) {
	ctx, span := s.start(ctx, "GetByID")
	defer span.End()

	if id == "" {
		return dom.Todo{}, s.fail(span, id, validation("id is required"), "")
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dom.Todo{}, s.fail(span, id, err, "Failed to fetch todo "+id)
	}
	return t, nil
}

// UpdateByID overwrites the supplied fields. updatedAtUtc is refreshed even for an empty patch.
func (s *TodoService) UpdateByID(ctx context.Context, id string, patch dom.TodoPatch) (dom.Todo, error) {
	ctx, span := s.start(ctx, "UpdateByID")
	defer span.End()

	if id == "" {
		return dom.Todo{}, s.fail(span, id, validation("id is required"), "")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return dom.Todo{}, s.fail(span, id, validation("title must not be empty"), "")
	}
	if patch.IsEmpty() {
		s.log.WithField("id", id).Debug("empty patch, touching updatedAtUtc only")
	}
	t, err := s.repo.Update(ctx, id, patch, s.clock())
	if err != nil {
		return dom.Todo{}, s.fail(span, id, err, "Failed to update todo")
	}
	s.invalidateCache(ctx)
	return t, nil
}

// DeleteByID hard-deletes the todo and returns its last state.
func (s *TodoService) DeleteByID(ctx context.Context, id string) (dom.Todo, error) {
	ctx, span := s.start(ctx, "DeleteByID")
	defer span.End()

	if id == "" {
		return dom.Todo{}, s.fail(span, id, validation("id is required"), "")
	}
	t, err := s.repo.Delete(ctx, id)
	if err != nil {
		return dom.Todo{}, s.fail(span, id, err, "Failed to delete todo")
	}
	s.invalidateCache(ctx)
	return t, nil
}

// clock returns the current UTC time at millisecond precision, the finest both stores keep.
func (s *TodoService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *TodoService) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "todo."+op, trace.WithAttributes(attribute.String("todo.backend", s.backend)))
}

// fail converts repository errors into the service taxonomy and records them on the span.
func (s *TodoService) fail(span trace.Span, id string, err error, msg string) error {
	var (
		verr *ValidationError
		nerr *NotFoundError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &nerr):
	case errors.Is(err, repo.ErrNotFound):
		err = &NotFoundError{ID: id}
	case errors.Is(err, repo.ErrInvalidID):
		err = validation("invalid id")
	default:
		err = persistence(msg, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *TodoService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.WithError(err).Warn("cache invalidate")
	}
}
