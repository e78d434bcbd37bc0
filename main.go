package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/kulaladarsh/tyreworks-app/controllers"
	"github.com/kulaladarsh/tyreworks-app/cron"
	"github.com/kulaladarsh/tyreworks-app/db"
	"github.com/kulaladarsh/tyreworks-app/otp"
	appredis "github.com/kulaladarsh/tyreworks-app/redis"
	"github.com/kulaladarsh/tyreworks-app/routes"
)

func main() {
	app := fiber.New()
	db.Init()
	db.Migrate()
	db.Seed()

	var store otp.Store
	if os.Getenv("REDIS_ADDR") != "" {
		appredis.InitRedis()
		store = otp.NewRedisStore(appredis.Client)
	} else {
		log.Println("REDIS_ADDR not set, keeping verification codes in memory")
		store = otp.NewMemoryStore()
	}
	controllers.OTPManager = otp.NewManager(store)

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Annapoorneshwari Tyre & Painting Works API")
	})
	routes.SetupAuthRoutes(app)
	routes.SetupServiceRoutes(app)
	routes.SetupBookingRoutes(app)
	routes.SetupRatingRoutes(app)
	routes.SetupAdminRoutes(app)

	cron.StartCronJobs(controllers.OTPManager)

	log.Fatal(app.Listen(":8000"))
}
