package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/config"
	"github.com/rajivgeraev/kos-api/internal/lifecycle"
)

type assetDeleter interface {
	DeleteAssetsByPrefix(ctx context.Context, params admin.DeleteAssetsByPrefixParams) (*admin.DeleteAssetsResult, error)
}

// CloudinaryService предоставляет методы для работы с Cloudinary
type CloudinaryService struct {
	cfg     config.CloudinaryConfig
	deleter assetDeleter
	logger  *zap.Logger
	now     func() time.Time
}

// NewCloudinaryService создает новый экземпляр CloudinaryService
func NewCloudinaryService(cfg config.CloudinaryConfig, logger *zap.Logger) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Cloudinary: %w", err)
	}
	return &CloudinaryService{cfg: cfg, deleter: &cld.Admin, logger: logger, now: time.Now}, nil
}

// Folder возвращает папку с фотографиями объявления
func (s *CloudinaryService) Folder(kosID int64) string {
	return fmt.Sprintf("%s/%d", s.cfg.UploadFolder, kosID)
}

// GenerateSignature создаёт корректную подпись для Cloudinary
func (s *CloudinaryService) GenerateSignature(params map[string]string) string {
	// Сортируем ключи параметров
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	signParts := make([]string, 0, len(keys))
	for _, k := range keys {
		signParts = append(signParts, fmt.Sprintf("%s=%s", k, params[k]))
	}

	// API-секрет добавляется в конец строки
	h := sha1.New()
	h.Write([]byte(strings.Join(signParts, "&") + s.cfg.APISecret))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateUploadParams создаёт подписанные параметры загрузки фото в папку объявления
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	kosID, err := strconv.ParseInt(c.Query("kos_id"), 10, 64)
	if err != nil || kosID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"kind":    lifecycle.KindInvalidInput,
			"error":   "Неверный ID объявления",
		})
	}

	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	folder := s.Folder(kosID)
	signature := s.GenerateSignature(map[string]string{
		"folder":    folder,
		"timestamp": timestamp,
	})

	return c.JSON(fiber.Map{
		"success":    true,
		"timestamp":  timestamp,
		"signature":  signature,
		"folder":     folder,
		"api_key":    s.cfg.APIKey,
		"cloud_name": s.cfg.CloudName,
		"kos_id":     kosID,
	})
}

// KosChanged удаляет фотографии навсегда удалённого объявления.
// Ошибка Cloudinary только логируется: удаление записи уже зафиксировано.
func (s *CloudinaryService) KosChanged(ctx context.Context, ev lifecycle.Event) {
	if ev.Type != lifecycle.EventDeleted {
		return
	}

	prefix := s.Folder(ev.KosID) + "/"
	res, err := s.deleter.DeleteAssetsByPrefix(ctx, admin.DeleteAssetsByPrefixParams{
		Prefix: api.CldAPIArray{prefix},
	})
	if err != nil {
		s.logger.Error("CloudinaryService.KosChanged: failed to purge photos",
			zap.Int64("kos_id", ev.KosID), zap.String("prefix", prefix), zap.Error(err))
		return
	}

	deleted := 0
	if res != nil {
		deleted = len(res.Deleted)
	}
	s.logger.Info("CloudinaryService.KosChanged: photos purged",
		zap.Int64("kos_id", ev.KosID), zap.String("prefix", prefix), zap.Int("deleted", deleted))
}
