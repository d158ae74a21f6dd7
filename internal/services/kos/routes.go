package kos

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/kos-api/internal/middleware"
	"github.com/rajivgeraev/kos-api/internal/models"
)

// SetupRoutes настраивает маршруты для API объявлений
func (s *KosService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api")

	// Любой авторизованный пользователь
	protected := api.Group("/kos", authMiddleware)
	protected.Patch("/:id/featured", s.SetFeatured)

	// Только администраторы
	admin := api.Group("/admin", authMiddleware, middleware.RequireRole(models.RoleAdmin))
	admin.Get("/kos", s.ListKos)
	admin.Post("/kos/bulk-archive", s.BulkArchive)
	admin.Post("/kos/bulk-delete", s.BulkPermanentDelete)
	admin.Delete("/kos/archive", s.Cleanup)
	admin.Patch("/kos/:id/archive", s.Archive)
	admin.Patch("/kos/:id/restore", s.Restore)
	admin.Delete("/kos/:id", s.PermanentDelete)
}
