package bulkaction

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
)

// Action пакетный переход, выбранный по текущему представлению
type Action string

const (
	ActionArchive         Action = "archive"
	ActionPermanentDelete Action = "permanent_delete"
)

// ActionFor выбирает переход: в архиве удаление навсегда, в активном списке архивирование
func ActionFor(archivedViewActive bool) Action {
	if archivedViewActive {
		return ActionPermanentDelete
	}
	return ActionArchive
}

// Executor выполняет пакетные операции движка
type Executor interface {
	BulkArchive(ctx context.Context, ids []int64) (lifecycle.BulkResult, error)
	BulkPermanentDelete(ctx context.Context, ids []int64) (lifecycle.BulkResult, error)
}

// Prompt описание подтверждения, которое видит пользователь
type Prompt struct {
	Action Action
	IDs    []int64
}

// Message возвращает текст вопроса
func (p Prompt) Message() string {
	if p.Action == ActionPermanentDelete {
		return fmt.Sprintf("Удалить навсегда %d объявл. из архива? Действие необратимо", len(p.IDs))
	}
	return fmt.Sprintf("Переместить %d объявл. в архив?", len(p.IDs))
}

// Confirmer запрашивает явное согласие пользователя; ожидание может быть долгим
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc адаптер функции к Confirmer
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// Callbacks сигналы вызывающей стороне: при успехе OnRefresh, при ошибке OnError, никогда оба
type Callbacks struct {
	OnRefresh func(res lifecycle.BulkResult)
	OnError   func(err error)
}

// Outcome итог вызова RemoveSelected
type Outcome string

const (
	OutcomeNothingSelected Outcome = "nothing_selected"
	OutcomeDeclined        Outcome = "declined"
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeFailed          Outcome = "failed"
)

// BulkError ошибка пакетной операции, сохраняющая результат по каждому ID
type BulkError struct {
	Action Action
	Result lifecycle.BulkResult
	Err    error
}

func (e *BulkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("%s: %d of %d failed", e.Action, len(e.Result.Failed), len(e.Result.Failed)+e.Result.Count)
}

func (e *BulkError) Unwrap() error {
	return e.Err
}

// Orchestrator связывает подтверждение, пакетный вызов и сигнал обновления
type Orchestrator struct {
	executor  Executor
	confirmer Confirmer
	callbacks Callbacks
	logger    *zap.Logger
	detached  atomic.Bool
}

// NewOrchestrator создает новый экземпляр Orchestrator
func NewOrchestrator(executor Executor, confirmer Confirmer, callbacks Callbacks, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		executor:  executor,
		confirmer: confirmer,
		callbacks: callbacks,
		logger:    logger,
	}
}

// Detach отмечает, что вызывающая сторона больше не существует.
// Операция в полёте завершится, но колбэки уже не вызываются.
func (o *Orchestrator) Detach() {
	o.detached.Store(true)
}

// RemoveSelected применяет к выбранным ID переход, соответствующий представлению.
// Отказ от подтверждения не вызывает движок и не вызывает колбэков.
func (o *Orchestrator) RemoveSelected(ctx context.Context, ids []int64, archivedViewActive bool) (Outcome, error) {
	if len(ids) == 0 {
		return OutcomeNothingSelected, nil
	}

	action := ActionFor(archivedViewActive)
	ok, err := o.confirmer.Confirm(ctx, Prompt{Action: action, IDs: ids})
	if err != nil {
		o.logger.Warn("Orchestrator.RemoveSelected: confirmation failed", zap.String("action", string(action)), zap.Error(err))
		return OutcomeDeclined, err
	}
	if !ok {
		o.logger.Info("Orchestrator.RemoveSelected: declined", zap.String("action", string(action)), zap.Int("count", len(ids)))
		return OutcomeDeclined, nil
	}

	var res lifecycle.BulkResult
	if action == ActionPermanentDelete {
		res, err = o.executor.BulkPermanentDelete(ctx, ids)
	} else {
		res, err = o.executor.BulkArchive(ctx, ids)
	}

	if err != nil || !res.OK() {
		bulkErr := &BulkError{Action: action, Result: res, Err: err}
		o.logger.Error("Orchestrator.RemoveSelected: bulk action failed",
			zap.String("action", string(action)), zap.Int64s("failed_ids", res.FailedIDs()), zap.Error(bulkErr))
		if !o.detached.Load() && o.callbacks.OnError != nil {
			o.callbacks.OnError(bulkErr)
		}
		return OutcomeFailed, bulkErr
	}

	o.logger.Info("Orchestrator.RemoveSelected: bulk action succeeded", zap.String("action", string(action)), zap.Int("count", res.Count))
	if !o.detached.Load() && o.callbacks.OnRefresh != nil {
		o.callbacks.OnRefresh(res)
	}
	return OutcomeSucceeded, nil
}

// EngineExecutor выполняет пакетные операции на движке в том же процессе от имени ActorID
type EngineExecutor struct {
	Engine  *lifecycle.Engine
	ActorID int64
}

func (e EngineExecutor) BulkArchive(ctx context.Context, ids []int64) (lifecycle.BulkResult, error) {
	return e.Engine.BulkArchive(ctx, ids, e.ActorID), nil
}

func (e EngineExecutor) BulkPermanentDelete(ctx context.Context, ids []int64) (lifecycle.BulkResult, error) {
	return e.Engine.BulkPermanentDelete(ctx, ids, e.ActorID), nil
}
