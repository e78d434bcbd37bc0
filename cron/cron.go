package cron

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kulaladarsh/tyreworks-app/db"
	"github.com/kulaladarsh/tyreworks-app/models"
	"github.com/kulaladarsh/tyreworks-app/otp"
	"github.com/kulaladarsh/tyreworks-app/utils"
	"github.com/robfig/cron/v3"
)

// StartCronJobs starts the background scheduler for booking reminders and
// one-time-code housekeeping.
func StartCronJobs(otpManager *otp.Manager) {
	c := cron.New()

	// Every evening at 18:00, remind customers booked for the next day.
	_, err := c.AddFunc("0 18 * * *", sendBookingReminders)
	if err != nil {
		log.Fatalf("Failed to add reminder cron job: %v", err)
	}

	// Every 10 minutes, drop expired verification challenges.
	_, err = c.AddFunc("*/10 * * * *", func() {
		otpManager.Sweep()
	})
	if err != nil {
		log.Fatalf("Failed to add sweep cron job: %v", err)
	}

	c.Start()
	log.Println("Cron job scheduler started")
}

// sendBookingReminders emails customers whose pending bookings fall on the
// next calendar day.
func sendBookingReminders() {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	var bookings []models.Booking
	err := db.DB.
		Where("status = ? AND preferred_date = ?", models.StatusPending, tomorrow).
		Find(&bookings).Error
	if err != nil {
		log.Printf("Error fetching bookings for reminders: %v", err)
		return
	}

	log.Printf("Found %d bookings for reminders on %s", len(bookings), tomorrow)

	for _, booking := range bookings {
		if booking.Email == "" {
			continue
		}
		if err := sendReminderEmail(&booking); err != nil {
			log.Printf("Failed to send reminder for booking %s: %v", booking.BookingID, err)
			continue
		}
		log.Printf("Sent reminder for booking %s to %s", booking.BookingID, booking.Email)
	}
}

func sendReminderEmail(booking *models.Booking) error {
	subject := fmt.Sprintf("Reminder: Your Service Booking Tomorrow - %s", booking.BookingID)
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder for your service booking scheduled tomorrow.</p>
		<p><strong>Details:</strong></p>
		<ul>
			<li><strong>Booking ID:</strong> %s</li>
			<li><strong>Services:</strong> %s</li>
			<li><strong>Date:</strong> %s</li>
			<li><strong>Time:</strong> %s</li>
		</ul>
		<p>Please be available at the scheduled time. If you need to reschedule or cancel, log in to your account as soon as possible.</p>
		<p>Best regards,</p>
		<p>Annapoorneshwari Tyre &amp; Painting Works</p>
	`, booking.Name, booking.BookingID, strings.Join(booking.Services.Names(), ", "),
		booking.PreferredDate, booking.PreferredTime)

	return utils.SendEmail(booking.Email, subject, body)
}
