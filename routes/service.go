package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kulaladarsh/tyreworks-app/controllers"
	"github.com/kulaladarsh/tyreworks-app/middleware"
	"github.com/kulaladarsh/tyreworks-app/models"
)

func SetupServiceRoutes(app *fiber.App) {
	service := app.Group("/services")
	service.Get("/", controllers.GetAllServices)
	service.Get("/:id", controllers.GetService)
	service.Post("/", middleware.Protected(), middleware.RequireRole(models.RoleAdmin), controllers.CreateService)
	service.Put("/:id", middleware.Protected(), middleware.RequireRole(models.RoleAdmin), controllers.UpdateService)
	service.Delete("/:id", middleware.Protected(), middleware.RequireRole(models.RoleAdmin), controllers.DeleteService)
}
