package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/cache"
	"github.com/rajivgeraev/kos-api/internal/config"
	"github.com/rajivgeraev/kos-api/internal/db"
	"github.com/rajivgeraev/kos-api/internal/events"
	"github.com/rajivgeraev/kos-api/internal/lifecycle"
	"github.com/rajivgeraev/kos-api/internal/logger"
	"github.com/rajivgeraev/kos-api/internal/metrics"
	"github.com/rajivgeraev/kos-api/internal/middleware"
	"github.com/rajivgeraev/kos-api/internal/services/cloudinary"
	"github.com/rajivgeraev/kos-api/internal/services/kos"
	"github.com/rajivgeraev/kos-api/internal/utils"
)

type recordStore interface {
	lifecycle.Store
	kos.Lister
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, cfg.LogEncoding)
	defer func() { _ = zlog.Sync() }()

	// Инициализируем хранилище
	store, err := openStore(cfg, zlog)
	if err != nil {
		zlog.Fatal("Ошибка при инициализации хранилища", zap.Error(err))
	}
	defer db.CloseDB()

	// Наблюдатели за зафиксированными переходами
	metricsManager := metrics.NewManager("kos")
	observers := []lifecycle.Observer{metricsManager}

	if cfg.NATSURL != "" {
		publisher, err := events.NewPublisher(cfg.NATSURL, zlog)
		if err != nil {
			zlog.Fatal("Ошибка подключения к NATS", zap.String("url", cfg.NATSURL), zap.Error(err))
		}
		defer publisher.Close()
		observers = append(observers, publisher)
	}

	var cloudinaryService *cloudinary.CloudinaryService
	if cfg.CloudinaryConfig.Enabled() {
		cloudinaryService, err = cloudinary.NewCloudinaryService(cfg.CloudinaryConfig, zlog)
		if err != nil {
			zlog.Fatal("Ошибка инициализации Cloudinary", zap.Error(err))
		}
		observers = append(observers, cloudinaryService)
	}

	var lister kos.Lister = store
	if cfg.RedisAddr != "" {
		viewCache, err := cache.NewViewCache(cfg.RedisAddr, store, cfg.ViewCacheTTL, zlog)
		if err != nil {
			zlog.Fatal("Ошибка подключения к Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer viewCache.Close()
		observers = append(observers, viewCache)
		lister = viewCache
	}

	engine := lifecycle.NewEngine(store, zlog, lifecycle.WithObservers(observers...))

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Kos API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "driver": cfg.StoreDriver})
	})
	app.Get("/metrics", metricsManager.Handler())

	// Настраиваем middleware для аутентификации
	authMiddleware := middleware.AuthMiddleware(utils.NewJWTService(cfg.JWTSecret))

	// Регистрируем маршруты
	kosService := kos.NewKosService(engine, lister, metricsManager, zlog)
	kosService.SetupRoutes(app, authMiddleware)
	if cloudinaryService != nil {
		cloudinaryService.SetupRoutes(app, authMiddleware)
	}

	go func() {
		zlog.Info("✅ Kos API запущен", zap.String("port", cfg.Port), zap.String("driver", cfg.StoreDriver))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Остановка сервера")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("Ошибка остановки сервера", zap.Error(err))
	}
}

func openStore(cfg *config.Config, zlog *zap.Logger) (recordStore, error) {
	if cfg.StoreDriver == config.StoreMemory {
		zlog.Warn("Используется хранилище в памяти: операции над парой не атомарны")
		return db.NewMemStore(), nil
	}

	if err := db.InitDB(cfg, zlog); err != nil {
		return nil, err
	}
	if cfg.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Migrate(ctx, db.Pool); err != nil {
			return nil, err
		}
		zlog.Info("Схема базы данных применена")
	}
	return db.NewKosStore(db.Pool), nil
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	kind := lifecycle.KindInternal

	// Проверяем, является ли ошибка из Fiber
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		switch code {
		case fiber.StatusNotFound:
			kind = lifecycle.KindNotFound
		case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed:
			kind = lifecycle.KindInvalidInput
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"kind":    kind,
		"error":   err.Error(),
	})
}
