package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentType string

const (
	PaymentOnline PaymentType = "online"
	PaymentManual PaymentType = "manual"
)

// TokenPaymentAmount is the flat UPI amount collected when a booking is
// placed. Recorded as a Payment, never folded into the booking totals.
const TokenPaymentAmount float64 = 20

// Payment records are append-only history. They never decide whether a
// booking is paid; the booking's own status and totals do.
type Payment struct {
	gorm.Model
	PaymentID string      `json:"payment_id" gorm:"unique"`
	BookingID string      `json:"booking_id"`
	Amount    float64     `json:"amount"`
	Mode      string      `json:"mode"` // "upi", "cash", ...
	Type      PaymentType `json:"type"`
	Status    string      `json:"status"`
	UPINumber string      `json:"upi_number,omitempty"`
	UPIRef    string      `json:"upi_ref,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.PaymentID == "" {
		p.PaymentID = strings.ToUpper(uuid.New().String()[:8])
	}
	if p.Status == "" {
		p.Status = "pending"
	}
	return nil
}

// PaymentsForBooking returns the payment history for a booking, oldest first.
func PaymentsForBooking(db *gorm.DB, bookingID string) ([]Payment, error) {
	var payments []Payment
	err := db.Where("booking_id = ?", bookingID).Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// TotalRecordedPayments sums all payment records. Reporting only; entries can
// be incomplete, so this may diverge from booking totals.
func TotalRecordedPayments(db *gorm.DB) (float64, error) {
	var total float64
	err := db.Model(&Payment{}).Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}
