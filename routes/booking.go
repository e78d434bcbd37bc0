package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kulaladarsh/tyreworks-app/controllers"
	"github.com/kulaladarsh/tyreworks-app/middleware"
)

// SetupBookingRoutes configures all booking related routes
func SetupBookingRoutes(app *fiber.App) {
	booking := app.Group("/bookings", middleware.Protected())
	booking.Post("/", controllers.CreateBooking)
	booking.Get("/", controllers.ListMyBookings)
	booking.Get("/:id", controllers.GetBooking)
	booking.Get("/:id/receipt", controllers.DownloadReceipt)
	booking.Post("/:id/cancel", controllers.CancelBooking)
	booking.Patch("/:id/schedule", controllers.RescheduleBooking)
}
