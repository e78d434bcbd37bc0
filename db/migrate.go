package db

import (
	"fmt"
	"log"

	"github.com/kulaladarsh/tyreworks-app/models"
)

// Migrate runs AutoMigrate for all models. Init must have been called first.
func Migrate() {
	err := DB.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Booking{},
		&models.Payment{},
		&models.Rating{},
	)
	if err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	fmt.Println("✅ Migrations applied successfully!")
}
