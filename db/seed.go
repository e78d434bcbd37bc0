package db

import (
	"log"
	"os"

	"github.com/kulaladarsh/tyreworks-app/models"
	"golang.org/x/crypto/bcrypt"
)

// Seed creates the service catalog and the default admin account when they
// don't exist yet. Safe to call on every startup.
func Seed() {
	seedServices()
	seedAdmin()
}

func seedServices() {
	services := []models.Service{
		{Name: "Puncturing", Price: 100, Description: "Tube and tubeless puncture repair"},
		{Name: "Tyre Replacement", Price: 500, Description: "Removal and fitting of new tyres"},
		{Name: "Wheel Alignment", Price: 350, Description: "Front and rear wheel alignment"},
		{Name: "Wheel Balancing", Price: 250, Description: "Computerized wheel balancing"},
		{Name: "Vehicle Painting", Price: 2000, Description: "Full and partial body painting"},
		{Name: "Denting", Price: 800, Description: "Dent removal and panel work"},
	}

	for _, service := range services {
		var existing models.Service
		if DB.Where("LOWER(name) = LOWER(?)", service.Name).First(&existing).RowsAffected == 0 {
			if err := DB.Create(&service).Error; err != nil {
				log.Printf("Failed to seed service %q: %v", service.Name, err)
			}
		}
	}
}

func seedAdmin() {
	var count int64
	DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Println("Warning: ADMIN_PASSWORD not set, using default admin credentials")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}

	admin := models.User{
		Name:     "Admin",
		Email:    os.Getenv("ADMIN_EMAIL"),
		Password: string(hashed),
		Status:   models.UserApproved,
		Role:     models.RoleAdmin,
	}
	if admin.Email == "" {
		admin.Email = "admin@tyreworks.local"
	}

	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to seed admin user: %v", err)
		return
	}
	log.Printf("Default admin user created: %s", admin.Email)
}
