package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
)

const MaxRatingPhotos = 5

type PhotoList []string

// Value implements the driver.Valuer interface
func (p PhotoList) Value() (driver.Value, error) {
	jsonData, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface
func (p *PhotoList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal PhotoList: unsupported type %T", value)
	}

	return json.Unmarshal(data, p)
}

type Rating struct {
	gorm.Model
	BookingID   string    `json:"booking_id" gorm:"uniqueIndex:idx_booking_service"`
	ServiceName string    `json:"service_name" gorm:"uniqueIndex:idx_booking_service"`
	Stars       int       `json:"stars"`
	Comment     string    `json:"comment"`
	Photos      PhotoList `json:"photos" gorm:"type:jsonb"`
	UserID      uint      `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
}

// RatingExists reports whether a rating already exists for the
// (booking, canonical service) pair. Case-insensitive on the service name.
func RatingExists(db *gorm.DB, bookingID, serviceName string) (bool, error) {
	var count int64
	err := db.Model(&Rating{}).
		Where("booking_id = ? AND LOWER(service_name) = LOWER(?)", bookingID, serviceName).
		Count(&count).Error
	return count > 0, err
}

// CanRate decides whether the user may rate the given service under the given
// booking. It returns the canonical service name and a specific error for
// every way the pair can be ineligible.
func CanRate(db *gorm.DB, bookingID, rawServiceName string, userID uint) (string, error) {
	canonical := CanonicalServiceName(db, rawServiceName)

	booking, err := FindBookingByID(db, bookingID)
	if err != nil {
		return canonical, err
	}
	if booking.UserID != userID {
		return canonical, ErrNotOwner
	}
	if booking.Status != StatusCompleted {
		return canonical, ErrNotCompleted
	}
	if !booking.Services.Contains(canonical) {
		return canonical, ErrUnknownService
	}

	exists, err := RatingExists(db, bookingID, canonical)
	if err != nil {
		return canonical, err
	}
	if exists {
		return canonical, ErrAlreadyRated
	}

	return canonical, nil
}

// SubmitRating re-checks eligibility and inserts the rating. The composite
// unique index on (booking_id, service_name) is the final authority: when two
// submissions race past CanRate, the loser's duplicate-key error is reported
// as ErrAlreadyRated.
func SubmitRating(db *gorm.DB, rating *Rating, rawServiceName string) error {
	if rating.Stars < 1 || rating.Stars > 5 {
		return ErrInvalidStars
	}
	if len(rating.Photos) > MaxRatingPhotos {
		return ErrTooManyPhotos
	}

	canonical, err := CanRate(db, rating.BookingID, rawServiceName, rating.UserID)
	if err != nil {
		return err
	}
	rating.ServiceName = canonical

	if err := db.Create(rating).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyRated
		}
		return err
	}
	return nil
}

// RemoveRating deletes a rating for good. A soft delete would leave the row
// inside the (booking_id, service_name) unique index, so the pair would look
// eligible to CanRate yet every re-submission would fail on the constraint.
func RemoveRating(db *gorm.DB, id uint) error {
	var rating Rating
	if err := db.First(&rating, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrRatingNotFound
		}
		return err
	}
	return db.Unscoped().Delete(&rating).Error
}

type ServiceAverage struct {
	ServiceName string  `json:"service_name"`
	Average     float64 `json:"average"`
	Count       int64   `json:"count"`
}

// AverageForService aggregates stars for one canonical service name.
func AverageForService(db *gorm.DB, serviceName string) (*ServiceAverage, error) {
	var result ServiceAverage
	err := db.Model(&Rating{}).
		Select("service_name, AVG(stars) as average, COUNT(*) as count").
		Where("LOWER(service_name) = LOWER(?)", serviceName).
		Group("service_name").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}
	if result.Count == 0 {
		// no rows grouped; report the canonical name so "no ratings yet" is
		// distinguishable from an unnamed zero
		result.ServiceName = CanonicalServiceName(db, serviceName)
		return &result, nil
	}
	result.Average = math.Round(result.Average*10) / 10
	return &result, nil
}

// AveragesByService aggregates stars grouped by canonical service name.
func AveragesByService(db *gorm.DB) ([]ServiceAverage, error) {
	var results []ServiceAverage
	err := db.Model(&Rating{}).
		Select("service_name, AVG(stars) as average, COUNT(*) as count").
		Group("service_name").
		Order("service_name").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Average = math.Round(results[i].Average*10) / 10
	}
	return results, nil
}
