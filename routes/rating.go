package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kulaladarsh/tyreworks-app/controllers"
	"github.com/kulaladarsh/tyreworks-app/middleware"
)

// SetupRatingRoutes configures all rating related routes
func SetupRatingRoutes(app *fiber.App) {
	rating := app.Group("/ratings")

	// Public routes
	rating.Get("/", controllers.GetRatings)
	rating.Get("/averages", controllers.GetServiceAverages)
	rating.Get("/averages/:name", controllers.GetServiceAverage)

	// Protected routes
	rating.Get("/eligibility", middleware.Protected(), controllers.CheckRatingEligibility)
	rating.Post("/", middleware.Protected(), controllers.SubmitRating)
}
