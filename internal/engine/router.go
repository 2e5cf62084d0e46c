package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the view surface on the app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/views/:view", h.RenderView)
	app.Post("/views/:view", h.RenderView)
	app.Post("/lookup", h.Lookup)
}
