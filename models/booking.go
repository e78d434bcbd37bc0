package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusRejected  BookingStatus = "rejected"
)

// BookingFee is added on top of the summed service amounts. The token payment
// collected at prebook time is recorded separately as a Payment and is not
// part of the booking total.
const BookingFee float64 = 0

type ServiceItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// UnmarshalJSON accepts both the current {name, amount} shape and the legacy
// bare-string shape, so old bookings and old clients decode into the same
// canonical form.
func (s *ServiceItem) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		s.Name = name
		s.Amount = 0
		return nil
	}

	type serviceItem ServiceItem
	var item serviceItem
	if err := json.Unmarshal(data, &item); err != nil {
		return fmt.Errorf("invalid service entry: %w", err)
	}
	*s = ServiceItem(item)
	return nil
}

type ServiceList []ServiceItem

// Value implements the driver.Valuer interface
func (s ServiceList) Value() (driver.Value, error) {
	jsonData, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface
func (s *ServiceList) Scan(value interface{}) error {
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
		return fmt.Errorf("failed to unmarshal ServiceList: unsupported type %T", value)
	}

	return json.Unmarshal(data, s)
}

func (s ServiceList) Contains(name string) bool {
	for _, item := range s {
		if strings.EqualFold(item.Name, name) {
			return true
		}
	}
	return false
}

func (s ServiceList) Total() float64 {
	var total float64
	for _, item := range s {
		total += item.Amount
	}
	return total
}

func (s ServiceList) Names() []string {
	names := make([]string, 0, len(s))
	for _, item := range s {
		names = append(names, item.Name)
	}
	return names
}

type Booking struct {
	gorm.Model
	BookingID          string        `json:"booking_id" gorm:"unique"`
	UserID             uint          `json:"user_id"`
	Name               string        `json:"name"`
	Contact            string        `json:"contact"`
	Email              string        `json:"email"`
	Area               string        `json:"area"`
	District           string        `json:"district"`
	Taluk              string        `json:"taluk"`
	PreferredDate      string        `json:"preferred_date"` // "2006-01-02"
	PreferredTime      string        `json:"preferred_time"` // "15:04"
	VehicleType        string        `json:"vehicle_type"`
	VehicleDetails     string        `json:"vehicle_details"`
	Services           ServiceList   `json:"services" gorm:"type:jsonb"`
	Status             BookingStatus `json:"status"`
	TotalServiceAmount float64       `json:"total_service_amount"`
	TotalAmount        float64       `json:"total_amount"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.BookingID == "" {
		b.BookingID = strings.ToUpper(uuid.New().String()[:8])
	}
	if b.Status == "" {
		b.Status = StatusPending
	}
	return nil
}

// ValidatePreferredDate checks the "2006-01-02" format and that the date is
// today or later.
func ValidatePreferredDate(dateStr string, now time.Time) error {
	parsed, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if parsed.Before(today) {
		return ErrInvalidDate
	}
	return nil
}

// FindBookingByID fetches a booking by its public booking id.
func FindBookingByID(db *gorm.DB, bookingID string) (*Booking, error) {
	var booking Booking
	err := db.Where("booking_id = ?", bookingID).First(&booking).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// transition performs the one-shot pending -> terminal status change as a
// conditional update. Two concurrent transitions cannot both match the
// pending row, so the loser fails with ErrNotPending instead of silently
// overwriting a terminal state.
func (b *Booking) transition(db *gorm.DB, to BookingStatus, extra map[string]interface{}) error {
	values := map[string]interface{}{"status": to, "updated_at": time.Now()}
	for k, v := range extra {
		values[k] = v
	}

	res := db.Model(&Booking{}).
		Where("booking_id = ? AND status = ?", b.BookingID, StatusPending).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		current, err := FindBookingByID(db, b.BookingID)
		if err != nil {
			return err
		}
		*b = *current
		return ErrNotPending
	}

	current, err := FindBookingByID(db, b.BookingID)
	if err != nil {
		return err
	}
	*b = *current
	return nil
}

func (b *Booking) Complete(db *gorm.DB) error {
	now := time.Now()
	return b.transition(db, StatusCompleted, map[string]interface{}{"completed_at": &now})
}

func (b *Booking) Cancel(db *gorm.DB, userID uint) error {
	if b.UserID != userID {
		return ErrNotOwner
	}
	return b.transition(db, StatusCancelled, nil)
}

func (b *Booking) Reject(db *gorm.DB) error {
	return b.transition(db, StatusRejected, nil)
}

// Reschedule moves a pending booking to a new date and time.
func (b *Booking) Reschedule(db *gorm.DB, newDate, newTime string) error {
	if err := ValidatePreferredDate(newDate, time.Now()); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", newTime); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	res := db.Model(&Booking{}).
		Where("booking_id = ? AND status = ?", b.BookingID, StatusPending).
		Updates(map[string]interface{}{
			"preferred_date": newDate,
			"preferred_time": newTime,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := FindBookingByID(db, b.BookingID); err != nil {
			return err
		}
		return ErrNotPending
	}

	b.PreferredDate = newDate
	b.PreferredTime = newTime
	return nil
}

// SetServiceAmounts assigns per-service amounts on a pending booking and
// recomputes both totals. Amounts on terminal bookings are rejected outright.
func (b *Booking) SetServiceAmounts(db *gorm.DB, items []ServiceItem) error {
	updated := make(ServiceList, len(b.Services))
	copy(updated, b.Services)

	for _, item := range items {
		if item.Amount < 0 {
			return ErrInvalidAmount
		}
		found := false
		for i := range updated {
			if strings.EqualFold(updated[i].Name, item.Name) {
				updated[i].Amount = item.Amount
				found = true
				break
			}
		}
		if !found {
			return ErrUnknownService
		}
	}

	serviceTotal := updated.Total()
	res := db.Model(&Booking{}).
		Where("booking_id = ? AND status = ?", b.BookingID, StatusPending).
		Updates(map[string]interface{}{
			"services":             updated,
			"total_service_amount": serviceTotal,
			"total_amount":         serviceTotal + BookingFee,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := FindBookingByID(db, b.BookingID); err != nil {
			return err
		}
		return ErrNotPending
	}

	b.Services = updated
	b.TotalServiceAmount = serviceTotal
	b.TotalAmount = serviceTotal + BookingFee
	return nil
}
