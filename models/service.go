package models

import (
	"strings"

	"gorm.io/gorm"
)

type Service struct {
	gorm.Model
	Name        string  `json:"name" gorm:"unique"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// CanonicalServiceName resolves a free-form service reference to the catalog
// name via a case-insensitive lookup. When the catalog has no match the raw
// name is capitalized and returned as-is; callers downstream still verify the
// name against the booking's own service list, so the leniency never grants
// eligibility on its own.
func CanonicalServiceName(db *gorm.DB, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	var service Service
	if err := db.Where("LOWER(name) = ?", strings.ToLower(raw)).First(&service).Error; err == nil {
		return service.Name
	}

	return capitalizeWords(raw)
}

func capitalizeWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
