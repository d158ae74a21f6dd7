package lifecycle

import (
	"context"

	"go.uber.org/zap"
)

// BulkFailure ошибка обработки одного ID в пакетной операции
type BulkFailure struct {
	ID      int64  `json:"id"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// BulkResult агрегированный результат пакетной операции.
// Пакет не атомарен: каждый ID обрабатывается независимо, в порядке передачи.
type BulkResult struct {
	Count     int           `json:"count"`
	Succeeded []int64       `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// OK сообщает, что ни один ID не завершился ошибкой
func (r BulkResult) OK() bool {
	return len(r.Failed) == 0
}

// FailedIDs возвращает ID, обработка которых завершилась ошибкой
func (r BulkResult) FailedIDs() []int64 {
	ids := make([]int64, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.ID)
	}
	return ids
}

func newBulkResult() BulkResult {
	return BulkResult{Succeeded: []int64{}, Failed: []BulkFailure{}}
}

func (r *BulkResult) add(id int64, err error) {
	if err == nil {
		r.Succeeded = append(r.Succeeded, id)
		r.Count++
		return
	}
	r.Failed = append(r.Failed, BulkFailure{ID: id, Kind: KindOf(err), Message: MessageOf(err)})
}

// BulkArchive архивирует каждый ID по контракту Archive
func (e *Engine) BulkArchive(ctx context.Context, ids []int64, actorID int64) BulkResult {
	res := e.bulk(ids, func(id int64) error {
		_, err := e.Archive(ctx, id, actorID)
		return err
	})
	e.logger.Info("KosEngine.BulkArchive: done",
		zap.Int("requested", len(ids)), zap.Int("succeeded", res.Count), zap.Int("failed", len(res.Failed)), zap.Int64("actor_id", actorID))
	return res
}

// BulkPermanentDelete удаляет навсегда каждый ID по контракту PermanentDelete (только из архива).
// Пустой список даёт успешный результат с нулевым счётчиком.
func (e *Engine) BulkPermanentDelete(ctx context.Context, ids []int64, actorID int64) BulkResult {
	res := e.bulk(ids, func(id int64) error {
		_, err := e.PermanentDelete(ctx, id, actorID)
		return err
	})
	e.logger.Info("KosEngine.BulkPermanentDelete: done",
		zap.Int("requested", len(ids)), zap.Int("succeeded", res.Count), zap.Int("failed", len(res.Failed)), zap.Int64("actor_id", actorID))
	return res
}

// Cleanup читает все архивные ID и удаляет каждый навсегда.
// Ошибка возвращается только если не удалось прочитать сам список.
func (e *Engine) Cleanup(ctx context.Context, actorID int64) (BulkResult, error) {
	ids, err := e.store.ArchivedKosIDs(ctx)
	if err != nil {
		e.logger.Error("KosEngine.Cleanup: failed to read archived ids", zap.Error(err))
		return BulkResult{}, newError(KindInternal, "cleanup", 0, "Ошибка получения архива", err)
	}
	if len(ids) == 0 {
		e.logger.Info("KosEngine.Cleanup: archive is empty")
		return newBulkResult(), nil
	}
	return e.BulkPermanentDelete(ctx, ids, actorID), nil
}

func (e *Engine) bulk(ids []int64, apply func(id int64) error) BulkResult {
	res := newBulkResult()
	for _, id := range ids {
		res.add(id, apply(id))
	}
	return res
}
