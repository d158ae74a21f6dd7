package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/models"
)

// Result конверт успешной операции над одной парой Kos/Post
type Result struct {
	ID         int64      `json:"id"`
	PostID     int64      `json:"post_id"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	DeletedBy  *int64     `json:"deleted_by,omitempty"`
	IsFeatured *bool      `json:"is_featured,omitempty"`
}

// Engine конечный автомат Active -> Archived -> Deleted для пары Kos/Post.
// Роль пользователя движок не проверяет, только состояние записи.
type Engine struct {
	store     Store
	logger    *zap.Logger
	now       func() time.Time
	observers []Observer
}

// Option настраивает Engine
type Option func(*Engine)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObservers добавляет наблюдателей за зафиксированными переходами
func WithObservers(obs ...Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, obs...) }
}

// NewEngine создаёт новый экземпляр Engine
func NewEngine(store Store, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Archive переводит активную пару в архив: deleted_at/deleted_by одинаковы у Kos и Post
func (e *Engine) Archive(ctx context.Context, id, actorID int64) (Result, error) {
	const op = "archive"
	if err := validateID(op, id); err != nil {
		return Result{}, err
	}

	at := e.now().UTC()
	by := actorID

	kos, err := e.mutatePair(ctx, op, id,
		func(k models.Kos) error {
			if k.Archived() {
				return newError(KindNotFound, op, id, "Объявление не найдено или уже в архиве", nil)
			}
			return nil
		},
		func(ctx context.Context, q Queries, k models.Kos) error {
			return q.SetPostDeleted(ctx, k.PostID, &at, &by)
		},
		func(ctx context.Context, q Queries, k models.Kos) error {
			return q.SetKosDeleted(ctx, k.ID, &at, &by)
		},
	)
	if err != nil {
		return Result{}, err
	}

	e.logger.Info("KosEngine.Archive: kos archived", zap.Int64("kos_id", id), zap.Int64("actor_id", actorID))
	e.notify(ctx, Event{Type: EventArchived, KosID: id, PostID: kos.PostID, ActorID: actorID, At: at})
	return Result{ID: id, PostID: kos.PostID, DeletedAt: &at, DeletedBy: &by}, nil
}

// Restore возвращает архивную пару в активное состояние, обнуляя deleted_at/deleted_by у обеих записей
func (e *Engine) Restore(ctx context.Context, id, actorID int64) (Result, error) {
	const op = "restore"
	if err := validateID(op, id); err != nil {
		return Result{}, err
	}

	kos, err := e.mutatePair(ctx, op, id,
		func(k models.Kos) error {
			if !k.Archived() {
				return newError(KindNotFound, op, id, "Объявление не найдено в архиве", nil)
			}
			return nil
		},
		func(ctx context.Context, q Queries, k models.Kos) error {
			return q.SetPostDeleted(ctx, k.PostID, nil, nil)
		},
		func(ctx context.Context, q Queries, k models.Kos) error {
			return q.SetKosDeleted(ctx, k.ID, nil, nil)
		},
	)
	if err != nil {
		return Result{}, err
	}

	e.logger.Info("KosEngine.Restore: kos restored", zap.Int64("kos_id", id), zap.Int64("actor_id", actorID))
	e.notify(ctx, Event{Type: EventRestored, KosID: id, PostID: kos.PostID, ActorID: actorID, At: e.now().UTC()})
	return Result{ID: id, PostID: kos.PostID}, nil
}

// PermanentDelete физически удаляет архивную пару: сначала Post, затем Kos.
// Удаление активного объявления отклоняется, сначала его нужно архивировать.
func (e *Engine) PermanentDelete(ctx context.Context, id, actorID int64) (Result, error) {
	const op = "permanent_delete"
	if err := validateID(op, id); err != nil {
		return Result{}, err
	}

	kos, err := e.mutatePair(ctx, op, id,
		func(k models.Kos) error {
			if !k.Archived() {
				return newError(KindNotFound, op, id, "Объявление не найдено в архиве", nil)
			}
			return nil
		},
		func(ctx context.Context, q Queries, k models.Kos) error {
			return q.DeletePost(ctx, k.PostID)
		},
		func(ctx context.Context, q Queries, k models.Kos) error {
			return q.DeleteKos(ctx, k.ID)
		},
	)
	if err != nil {
		return Result{}, err
	}

	e.logger.Info("KosEngine.PermanentDelete: kos deleted", zap.Int64("kos_id", id), zap.Int64("actor_id", actorID))
	e.notify(ctx, Event{Type: EventDeleted, KosID: id, PostID: kos.PostID, ActorID: actorID, At: e.now().UTC()})
	return Result{ID: id, PostID: kos.PostID}, nil
}

// SetFeatured меняет только флаг is_featured у Post; состояние жизненного цикла не проверяется
func (e *Engine) SetFeatured(ctx context.Context, id int64, featured bool, actorID int64) (Result, error) {
	const op = "set_featured"
	if err := validateID(op, id); err != nil {
		return Result{}, err
	}

	var kos models.Kos
	err := e.store.RunInTx(ctx, func(ctx context.Context, q Queries) error {
		k, err := q.FindKos(ctx, id)
		if err != nil {
			return err
		}
		if err := q.SetPostFeatured(ctx, k.PostID, featured); err != nil {
			return err
		}
		kos = k
		return nil
	})
	if err != nil {
		return Result{}, e.classify(op, id, err, false)
	}

	e.logger.Info("KosEngine.SetFeatured: featured flag updated",
		zap.Int64("kos_id", id), zap.Bool("is_featured", featured), zap.Int64("actor_id", actorID))
	e.notify(ctx, Event{Type: EventFeatured, KosID: id, PostID: kos.PostID, ActorID: actorID, At: e.now().UTC(), IsFeatured: &featured})
	return Result{ID: id, PostID: kos.PostID, IsFeatured: &featured}, nil
}

type pairStep func(ctx context.Context, q Queries, k models.Kos) error

// mutatePair читает Kos непосредственно перед изменением, проверяет предусловие,
// затем выполняет шаг над Post и только после его успеха шаг над Kos.
func (e *Engine) mutatePair(ctx context.Context, op string, id int64, check func(models.Kos) error, postStep, kosStep pairStep) (models.Kos, error) {
	var kos models.Kos
	postDone := false

	err := e.store.RunInTx(ctx, func(ctx context.Context, q Queries) error {
		k, err := q.FindKos(ctx, id)
		if err != nil {
			return err
		}
		if err := check(k); err != nil {
			return err
		}
		if err := postStep(ctx, q, k); err != nil {
			return err
		}
		postDone = true
		if err := kosStep(ctx, q, k); err != nil {
			return err
		}
		kos = k
		return nil
	})
	if err != nil {
		return models.Kos{}, e.classify(op, id, err, postDone)
	}
	return kos, nil
}

// classify приводит ошибку хранилища к виду ошибки движка.
// PartialFailure возможен только для неатомарного хранилища и никогда не повторяется автоматически.
func (e *Engine) classify(op string, id int64, err error, postDone bool) error {
	if postDone && !e.store.Atomic() {
		e.logger.Error("KosEngine: post changed but kos step failed, pair needs manual reconciliation",
			zap.String("op", op), zap.Int64("kos_id", id), zap.Error(err))
		return newError(KindPartialFailure, op, id, "Публикация изменена, но объявление не обновлено", err)
	}

	var le *Error
	if errors.As(err, &le) {
		e.logger.Warn("KosEngine: precondition failed", zap.String("op", op), zap.Int64("kos_id", id), zap.String("kind", string(le.Kind)))
		return le
	}
	if errors.Is(err, ErrNoRecord) {
		e.logger.Warn("KosEngine: kos not found", zap.String("op", op), zap.Int64("kos_id", id))
		return newError(KindNotFound, op, id, "Объявление не найдено", err)
	}

	e.logger.Error("KosEngine: store failure", zap.String("op", op), zap.Int64("kos_id", id), zap.Error(err))
	return newError(KindInternal, op, id, "Ошибка базы данных", err)
}

func (e *Engine) notify(ctx context.Context, ev Event) {
	for _, o := range e.observers {
		o.KosChanged(ctx, ev)
	}
}

func validateID(op string, id int64) error {
	if id <= 0 {
		return newError(KindInvalidInput, op, id, "Неверный ID объявления", nil)
	}
	return nil
}
