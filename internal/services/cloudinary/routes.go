package cloudinary

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршрут выдачи параметров загрузки фото
func (s *CloudinaryService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api")

	protected := api.Group("/upload", authMiddleware)
	protected.Get("/params", s.GenerateUploadParams)
}
