package controllers

import (
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kulaladarsh/tyreworks-app/db"
	"github.com/kulaladarsh/tyreworks-app/models"
	"github.com/kulaladarsh/tyreworks-app/utils"
)

// GetDashboardStats aggregates the admin dashboard numbers. Revenue comes
// from completed bookings' own totals; the payment-record sum is reported
// alongside and may diverge when manual entries are incomplete.
func GetDashboardStats(c *fiber.Ctx) error {
	type DashboardStats struct {
		TotalBookings     int64   `json:"total_bookings"`
		TotalRatings      int64   `json:"total_ratings"`
		TodayBookings     int64   `json:"today_bookings"`
		PendingBookings   int64   `json:"pending_bookings"`
		CompletedBookings int64   `json:"completed_bookings"`
		TotalRevenue      float64 `json:"total_revenue"`
		RecordedPayments  float64 `json:"recorded_payments"`
		AverageRating     float64 `json:"average_rating"`
	}

	var stats DashboardStats
	db.DB.Model(&models.Booking{}).Count(&stats.TotalBookings)
	db.DB.Model(&models.Rating{}).Count(&stats.TotalRatings)

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	db.DB.Model(&models.Booking{}).Where("created_at >= ?", todayStart).Count(&stats.TodayBookings)

	db.DB.Model(&models.Booking{}).Where("status = ?", models.StatusPending).Count(&stats.PendingBookings)
	db.DB.Model(&models.Booking{}).Where("status = ?", models.StatusCompleted).Count(&stats.CompletedBookings)

	db.DB.Model(&models.Booking{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("status = ?", models.StatusCompleted).
		Scan(&stats.TotalRevenue)

	recorded, err := models.TotalRecordedPayments(db.DB)
	if err == nil {
		stats.RecordedPayments = recorded
	}

	averages, err := models.AveragesByService(db.DB)
	if err == nil && len(averages) > 0 {
		var sum float64
		for _, avg := range averages {
			sum += avg.Average
		}
		stats.AverageRating = math.Round(sum/float64(len(averages))*10) / 10
	}

	return c.JSON(stats)
}

// ListUsers returns all accounts for the admin, optionally filtered by
// status (?status=pending).
func ListUsers(c *fiber.Ctx) error {
	query := db.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch users",
			Error:   err.Error(),
		})
	}
	for i := range users {
		users[i].Password = ""
	}
	return c.JSON(users)
}

// UpdateUserStatus approves or rejects an account.
func UpdateUserStatus(c *fiber.Ctx) error {
	type StatusInput struct {
		Status string `json:"status" validate:"required,oneof=approved rejected"`
	}

	input := new(StatusInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Status must be approved or rejected",
		})
	}

	var user models.User
	if err := db.DB.First(&user, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if err := db.DB.Model(&user).Update("status", input.Status).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update user status",
		})
	}

	user.Password = ""
	return c.JSON(user)
}

// RecordManualPayment appends a manual reconciliation entry to a booking's
// payment history.
func RecordManualPayment(c *fiber.Ctx) error {
	type PaymentInput struct {
		BookingID string  `json:"booking_id" validate:"required"`
		Amount    float64 `json:"amount" validate:"gt=0"`
		Mode      string  `json:"mode" validate:"required"`
	}

	input := new(PaymentInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment data: " + err.Error(),
		})
	}

	if _, err := models.FindBookingByID(db.DB, input.BookingID); err != nil {
		return bookingError(c, err)
	}

	payment := models.Payment{
		BookingID: input.BookingID,
		Amount:    input.Amount,
		Mode:      input.Mode,
		Type:      models.PaymentManual,
		Status:    "completed",
	}
	if err := db.DB.Create(&payment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record payment",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

// GetBookingPayments returns a booking's payment history.
func GetBookingPayments(c *fiber.Ctx) error {
	bookingID := c.Params("id")
	if _, err := models.FindBookingByID(db.DB, bookingID); err != nil {
		return bookingError(c, err)
	}

	payments, err := models.PaymentsForBooking(db.DB, bookingID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch payments",
			Error:   err.Error(),
		})
	}
	return c.JSON(payments)
}
