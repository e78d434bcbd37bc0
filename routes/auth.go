package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kulaladarsh/tyreworks-app/controllers"
	"github.com/kulaladarsh/tyreworks-app/middleware"
)

// SetupAuthRoutes configures all authentication related routes
func SetupAuthRoutes(app *fiber.App) {
	auth := app.Group("/auth")

	// Public routes
	auth.Post("/register", controllers.Register)
	auth.Post("/login", controllers.Login)
	auth.Post("/otp/request", controllers.RequestOTP)
	auth.Post("/otp/verify", controllers.VerifyOTP)
	auth.Post("/reset-password", controllers.ResetPassword)
	auth.Post("/refresh", controllers.RefreshToken)

	// Protected routes
	auth.Get("/me", middleware.Protected(), controllers.GetUserProfile)
	auth.Post("/profile/picture", middleware.Protected(), controllers.UpdateProfilePicture)
}
