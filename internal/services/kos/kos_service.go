package kos

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/db"
	"github.com/rajivgeraev/kos-api/internal/lifecycle"
	"github.com/rajivgeraev/kos-api/internal/metrics"
	"github.com/rajivgeraev/kos-api/internal/middleware"
	"github.com/rajivgeraev/kos-api/internal/models"
)

// Lister читает представления активных и архивных объявлений
type Lister interface {
	ListKos(ctx context.Context, archived bool) ([]models.Kos, error)
}

// KosService HTTP-обработчики жизненного цикла объявлений
type KosService struct {
	engine  *lifecycle.Engine
	lister  Lister
	metrics *metrics.Manager
	logger  *zap.Logger
}

// NewKosService создает новый экземпляр KosService; metrics может быть nil
func NewKosService(engine *lifecycle.Engine, lister Lister, m *metrics.Manager, logger *zap.Logger) *KosService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KosService{engine: engine, lister: lister, metrics: m, logger: logger}
}

type featuredRequest struct {
	IsFeatured *bool `json:"is_featured"`
}

type bulkRequest struct {
	IDs []int64 `json:"ids"`
}

// ListKos возвращает активное или архивное представление
func (s *KosService) ListKos(c fiber.Ctx) error {
	archived := c.Query("archived") == "true"

	ctx, cancel := db.GetContext()
	defer cancel()

	list, err := s.lister.ListKos(ctx, archived)
	if err != nil {
		s.logger.Error("KosService.ListKos: failed to list", zap.Bool("archived", archived), zap.Error(err))
		return s.fail(c, "list", lifecycle.NewError(lifecycle.KindInternal, "Ошибка получения объявлений"))
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"archived": archived,
		"items":    list,
	})
}

// Archive переводит объявление в архив
func (s *KosService) Archive(c fiber.Ctx) error {
	return s.single(c, "archive", s.engine.Archive)
}

// Restore возвращает объявление из архива
func (s *KosService) Restore(c fiber.Ctx) error {
	return s.single(c, "restore", s.engine.Restore)
}

// PermanentDelete удаляет архивное объявление навсегда
func (s *KosService) PermanentDelete(c fiber.Ctx) error {
	return s.single(c, "permanent_delete", s.engine.PermanentDelete)
}

// SetFeatured меняет флаг is_featured у публикации
func (s *KosService) SetFeatured(c fiber.Ctx) error {
	const op = "set_featured"
	userID, _, ok := middleware.Identity(c)
	if !ok {
		return s.fail(c, op, lifecycle.NewError(lifecycle.KindUnauthorized, "Пользователь не авторизован"))
	}

	id, err := parseID(c)
	if err != nil {
		return s.fail(c, op, err)
	}

	var req featuredRequest
	if err := c.Bind().Body(&req); err != nil || req.IsFeatured == nil {
		return s.fail(c, op, lifecycle.NewError(lifecycle.KindInvalidInput, "Неверный формат данных"))
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	res, err := s.engine.SetFeatured(ctx, id, *req.IsFeatured, userID)
	if err != nil {
		return s.fail(c, op, err)
	}
	return c.JSON(fiber.Map{"success": true, "kos": res})
}

// BulkArchive архивирует список объявлений
func (s *KosService) BulkArchive(c fiber.Ctx) error {
	return s.bulk(c, "bulk_archive", s.engine.BulkArchive)
}

// BulkPermanentDelete удаляет навсегда список архивных объявлений
func (s *KosService) BulkPermanentDelete(c fiber.Ctx) error {
	return s.bulk(c, "bulk_delete", s.engine.BulkPermanentDelete)
}

// Cleanup удаляет навсегда весь архив
func (s *KosService) Cleanup(c fiber.Ctx) error {
	const op = "cleanup"
	userID, _, _ := middleware.Identity(c)

	ctx, cancel := db.GetContext()
	defer cancel()

	res, err := s.engine.Cleanup(ctx, userID)
	if err != nil {
		return s.fail(c, op, err)
	}
	return s.bulkOK(c, op, res)
}

func (s *KosService) single(c fiber.Ctx, op string, apply func(ctx context.Context, id, actorID int64) (lifecycle.Result, error)) error {
	userID, _, ok := middleware.Identity(c)
	if !ok {
		return s.fail(c, op, lifecycle.NewError(lifecycle.KindUnauthorized, "Пользователь не авторизован"))
	}

	id, err := parseID(c)
	if err != nil {
		return s.fail(c, op, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	res, err := apply(ctx, id, userID)
	if err != nil {
		return s.fail(c, op, err)
	}
	return c.JSON(fiber.Map{"success": true, "kos": res})
}

func (s *KosService) bulk(c fiber.Ctx, op string, apply func(ctx context.Context, ids []int64, actorID int64) lifecycle.BulkResult) error {
	userID, _, _ := middleware.Identity(c)

	var req bulkRequest
	if err := c.Bind().Body(&req); err != nil {
		s.logger.Warn("KosService: invalid bulk body", zap.String("op", op), zap.Error(err))
		return s.fail(c, op, lifecycle.NewError(lifecycle.KindInvalidInput, "Неверный формат данных"))
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	return s.bulkOK(c, op, apply(ctx, req.IDs, userID))
}

func (s *KosService) bulkOK(c fiber.Ctx, op string, res lifecycle.BulkResult) error {
	if s.metrics != nil {
		s.metrics.RecordBulk(op, res)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"count":     res.Count,
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
	})
}

func (s *KosService) fail(c fiber.Ctx, op string, err error) error {
	kind := lifecycle.KindOf(err)
	if s.metrics != nil {
		s.metrics.RecordError(op, kind)
	}
	return c.Status(StatusOf(kind)).JSON(fiber.Map{
		"success": false,
		"kind":    kind,
		"error":   lifecycle.MessageOf(err),
	})
}

// StatusOf сопоставляет вид ошибки движка с HTTP-статусом
func StatusOf(kind lifecycle.Kind) int {
	switch kind {
	case lifecycle.KindNotFound:
		return fiber.StatusNotFound
	case lifecycle.KindInvalidInput:
		return fiber.StatusBadRequest
	case lifecycle.KindUnauthorized:
		return fiber.StatusUnauthorized
	case lifecycle.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func parseID(c fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, lifecycle.NewError(lifecycle.KindInvalidInput, "Неверный ID объявления")
	}
	return id, nil
}
