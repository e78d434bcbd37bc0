package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kulaladarsh/tyreworks-app/db"
	"github.com/kulaladarsh/tyreworks-app/models"
	"github.com/kulaladarsh/tyreworks-app/utils"
	"gorm.io/gorm"
)

var (
	contactPattern = regexp.MustCompile(`^\d{10,15}$`)
	upiPattern     = regexp.MustCompile(`^[\w.-]+@[\w.-]+$`)
)

// CreateBooking validates and stores a new prebooking for the logged-in
// customer, records the UPI token payment, and emails a confirmation receipt.
func CreateBooking(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	type BookingInput struct {
		Name           string             `json:"name" validate:"required"`
		Contact        string             `json:"contact" validate:"required"`
		Email          string             `json:"email" validate:"required,email"`
		Area           string             `json:"area" validate:"required"`
		District       string             `json:"district" validate:"required"`
		Taluk          string             `json:"taluk" validate:"required"`
		PreferredDate  string             `json:"preferred_date" validate:"required"`
		PreferredTime  string             `json:"preferred_time" validate:"required"`
		VehicleType    string             `json:"vehicle_type" validate:"required"`
		VehicleDetails string             `json:"vehicle_details" validate:"required"`
		Services       models.ServiceList `json:"services"`
		UPINumber      string             `json:"upi_number" validate:"required"`
		UPIRef         string             `json:"upi_ref" validate:"required,min=8,max=30"`
	}

	input := new(BookingInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please fill in all required fields: " + err.Error(),
		})
	}

	if !contactPattern.MatchString(strings.TrimSpace(input.Contact)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid contact number",
		})
	}
	if err := models.ValidatePreferredDate(input.PreferredDate, time.Now()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if _, err := time.Parse("15:04", input.PreferredTime); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid time format",
		})
	}
	if len(input.Services) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please select at least one service",
		})
	}
	if !upiPattern.MatchString(strings.TrimSpace(input.UPINumber)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid UPI ID",
		})
	}

	// normalize: amounts start at zero, the operator assigns them later
	services := make(models.ServiceList, len(input.Services))
	for i, item := range input.Services {
		services[i] = models.ServiceItem{Name: models.CanonicalServiceName(db.DB, item.Name)}
	}

	booking := models.Booking{
		BookingID:      utils.GenerateBookingID(),
		UserID:         userID,
		Name:           strings.TrimSpace(input.Name),
		Contact:        strings.TrimSpace(input.Contact),
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		Area:           input.Area,
		District:       input.District,
		Taluk:          input.Taluk,
		PreferredDate:  input.PreferredDate,
		PreferredTime:  input.PreferredTime,
		VehicleType:    input.VehicleType,
		VehicleDetails: input.VehicleDetails,
		Services:       services,
		Status:         models.StatusPending,
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		payment := models.Payment{
			BookingID: booking.BookingID,
			Amount:    models.TokenPaymentAmount,
			Mode:      "upi",
			Type:      models.PaymentOnline,
			Status:    "completed",
			UPINumber: strings.TrimSpace(input.UPINumber),
			UPIRef:    strings.TrimSpace(input.UPIRef),
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		log.Printf("Error creating booking: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create booking",
		})
	}

	// confirmation is best-effort: the booking stands even if mail fails
	go sendBookingReceipt(booking, "Booking Confirmed",
		fmt.Sprintf("Booking Confirmation - %s", booking.BookingID),
		fmt.Sprintf(`
			<p>Dear %s,</p>
			<p>Your booking has been confirmed successfully!</p>
			<ul>
				<li><strong>Booking ID:</strong> %s</li>
				<li><strong>Services:</strong> %s</li>
				<li><strong>Date:</strong> %s at %s</li>
			</ul>
			<p>Your service will be completed soon and you'll receive a final receipt via email.</p>
			<p>Thank you for choosing Annapoorneshwari Tyre &amp; Painting Works!</p>
		`, booking.Name, booking.BookingID, strings.Join(booking.Services.Names(), ", "),
			booking.PreferredDate, booking.PreferredTime))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"booking_id": booking.BookingID,
		"message":    "Pre-booking confirmed successfully!",
	})
}

func sendBookingReceipt(booking models.Booking, title, subject, body string) {
	pdfBytes, err := utils.GenerateReceiptPDF(&booking, title)
	if err != nil {
		log.Printf("Failed to render receipt for booking %s: %v", booking.BookingID, err)
		pdfBytes = nil
	}
	name := fmt.Sprintf("receipt_%s.pdf", booking.BookingID)
	if err := utils.SendEmailWithAttachment(booking.Email, subject, body, name, pdfBytes); err != nil {
		log.Printf("Failed to send receipt email for booking %s: %v", booking.BookingID, err)
	}
}

// GetBooking returns one booking; customers only see their own.
func GetBooking(c *fiber.Ctx) error {
	booking, err := models.FindBookingByID(db.DB, c.Params("id"))
	if err != nil {
		return bookingError(c, err)
	}

	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(string)
	if role != string(models.RoleAdmin) && booking.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to view this booking",
		})
	}

	return c.JSON(booking)
}

// ListMyBookings returns the caller's bookings, newest first.
func ListMyBookings(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var bookings []models.Booking
	if err := db.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch bookings",
			Error:   err.Error(),
		})
	}
	return c.JSON(bookings)
}

// ListBookings returns all bookings for the admin, optionally filtered by
// status (?status=pending).
func ListBookings(c *fiber.Ctx) error {
	query := db.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := query.Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch bookings",
			Error:   err.Error(),
		})
	}
	return c.JSON(bookings)
}

// SetServiceAmounts assigns per-service charges on a pending booking and
// recomputes its totals.
func SetServiceAmounts(c *fiber.Ctx) error {
	type AmountsInput struct {
		Services []models.ServiceItem `json:"services" validate:"required,min=1"`
	}

	input := new(AmountsInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one service amount is required",
		})
	}

	booking, err := models.FindBookingByID(db.DB, c.Params("id"))
	if err != nil {
		return bookingError(c, err)
	}

	if err := booking.SetServiceAmounts(db.DB, input.Services); err != nil {
		return bookingError(c, err)
	}

	return c.JSON(booking)
}

// CompleteBooking transitions a pending booking to completed and emails the
// final receipt. Completion is what unlocks rating eligibility.
func CompleteBooking(c *fiber.Ctx) error {
	booking, err := models.FindBookingByID(db.DB, c.Params("id"))
	if err != nil {
		return bookingError(c, err)
	}

	if err := booking.Complete(db.DB); err != nil {
		return bookingError(c, err)
	}

	go sendBookingReceipt(*booking, "Service Completed",
		fmt.Sprintf("Service Completion Receipt - %s", booking.BookingID),
		fmt.Sprintf(`
			<p>Dear %s,</p>
			<p>Your service has been completed successfully!</p>
			<ul>
				<li><strong>Booking ID:</strong> %s</li>
				<li><strong>Services:</strong> %s</li>
				<li><strong>Total Amount:</strong> Rs. %.2f</li>
			</ul>
			<p>You can now rate our services on our website.</p>
			<p>Thank you for choosing Annapoorneshwari Tyre &amp; Painting Works!</p>
		`, booking.Name, booking.BookingID, strings.Join(booking.Services.Names(), ", "), booking.TotalAmount))

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Booking marked as completed successfully",
	})
}

// CancelBooking lets the owning customer cancel a pending booking.
func CancelBooking(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	booking, err := models.FindBookingByID(db.DB, c.Params("id"))
	if err != nil {
		return bookingError(c, err)
	}

	if err := booking.Cancel(db.DB, userID); err != nil {
		return bookingError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// RejectBooking lets the admin reject a pending booking. The reason is only
// carried in the notification, not stored on the booking.
func RejectBooking(c *fiber.Ctx) error {
	type RejectInput struct {
		Reason string `json:"reason"`
	}
	input := new(RejectInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	booking, err := models.FindBookingByID(db.DB, c.Params("id"))
	if err != nil {
		return bookingError(c, err)
	}

	if err := booking.Reject(db.DB); err != nil {
		return bookingError(c, err)
	}

	reason := input.Reason
	if reason == "" {
		reason = "Please contact us for details."
	}
	go func() {
		body := fmt.Sprintf(`
			<p>Dear %s,</p>
			<p>We are sorry, your booking %s could not be accepted.</p>
			<p>Reason: %s</p>
		`, booking.Name, booking.BookingID, reason)
		if err := utils.SendEmail(booking.Email, fmt.Sprintf("Booking Rejected - %s", booking.BookingID), body); err != nil {
			log.Printf("Failed to send rejection email for booking %s: %v", booking.BookingID, err)
		}
	}()

	return c.JSON(fiber.Map{"success": true})
}

// RescheduleBooking moves a pending booking to a new date and time.
func RescheduleBooking(c *fiber.Ctx) error {
	type RescheduleInput struct {
		PreferredDate string `json:"preferred_date" validate:"required"`
		PreferredTime string `json:"preferred_time" validate:"required"`
	}

	input := new(RescheduleInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Date and time are required",
		})
	}

	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(string)

	booking, err := models.FindBookingByID(db.DB, c.Params("id"))
	if err != nil {
		return bookingError(c, err)
	}
	if role != string(models.RoleAdmin) && booking.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to reschedule this booking",
		})
	}

	if err := booking.Reschedule(db.DB, input.PreferredDate, input.PreferredTime); err != nil {
		return bookingError(c, err)
	}

	return c.JSON(booking)
}

// DownloadReceipt streams the booking receipt as a PDF.
func DownloadReceipt(c *fiber.Ctx) error {
	booking, err := models.FindBookingByID(db.DB, c.Params("id"))
	if err != nil {
		return bookingError(c, err)
	}

	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(string)
	if role != string(models.RoleAdmin) && booking.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have permission to view this receipt",
		})
	}

	pdfBytes, err := utils.GenerateReceiptPDF(booking, "Service Receipt")
	if err != nil {
		log.Printf("Failed to render receipt for booking %s: %v", booking.BookingID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error generating receipt",
		})
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=receipt_%s.pdf", booking.BookingID))
	return c.Send(pdfBytes)
}

// ExportBookingsCSV dumps all bookings as a CSV file for the admin.
func ExportBookingsCSV(c *fiber.Ctx) error {
	var bookings []models.Booking
	if err := db.DB.Order("created_at DESC").Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch bookings",
			Error:   err.Error(),
		})
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		"booking_id", "name", "contact", "email", "area", "district", "taluk",
		"preferred_date", "preferred_time", "vehicle_type", "services",
		"status", "total_service_amount", "total_amount", "created_at",
	})
	for _, b := range bookings {
		_ = w.Write([]string{
			b.BookingID, b.Name, b.Contact, b.Email, b.Area, b.District, b.Taluk,
			b.PreferredDate, b.PreferredTime, b.VehicleType,
			strings.Join(b.Services.Names(), "; "),
			string(b.Status),
			fmt.Sprintf("%.2f", b.TotalServiceAmount),
			fmt.Sprintf("%.2f", b.TotalAmount),
			b.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename=bookings.csv")
	return c.SendString(buf.String())
}

// DeleteBooking removes a booking record entirely (admin cleanup).
func DeleteBooking(c *fiber.Ctx) error {
	booking, err := models.FindBookingByID(db.DB, c.Params("id"))
	if err != nil {
		return bookingError(c, err)
	}

	if err := db.DB.Delete(booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete booking",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// bookingError maps domain errors onto HTTP statuses with actionable bodies.
func bookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrBookingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrNotPending):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidDate),
		errors.Is(err, models.ErrInvalidSchedule),
		errors.Is(err, models.ErrUnknownService):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unexpected error",
		})
	}
}
