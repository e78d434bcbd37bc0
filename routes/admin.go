package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kulaladarsh/tyreworks-app/controllers"
	"github.com/kulaladarsh/tyreworks-app/middleware"
	"github.com/kulaladarsh/tyreworks-app/models"
)

func SetupAdminRoutes(app *fiber.App) {
	admin := app.Group("/admin", middleware.Protected(), middleware.RequireRole(models.RoleAdmin))

	admin.Get("/dashboard", controllers.GetDashboardStats)

	admin.Get("/bookings", controllers.ListBookings)
	admin.Get("/bookings/export", controllers.ExportBookingsCSV)
	admin.Patch("/bookings/:id/amounts", controllers.SetServiceAmounts)
	admin.Post("/bookings/:id/complete", controllers.CompleteBooking)
	admin.Post("/bookings/:id/reject", controllers.RejectBooking)
	admin.Delete("/bookings/:id", controllers.DeleteBooking)
	admin.Get("/bookings/:id/payments", controllers.GetBookingPayments)
	admin.Post("/payments", controllers.RecordManualPayment)

	admin.Get("/users", controllers.ListUsers)
	admin.Patch("/users/:id/status", controllers.UpdateUserStatus)

	admin.Delete("/ratings/:id", controllers.DeleteRating)
}
