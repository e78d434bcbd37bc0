package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateBookingID returns a short opaque public id for a booking,
// e.g. "3FA85F64".
func GenerateBookingID() string {
	return strings.ToUpper(uuid.New().String()[:8])
}
