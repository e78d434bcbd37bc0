package controllers

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/kulaladarsh/tyreworks-app/db"
	"github.com/kulaladarsh/tyreworks-app/models"
	"github.com/kulaladarsh/tyreworks-app/utils"
)

// CheckRatingEligibility tells the caller whether they may rate a service
// under a booking, with the exact reason when they may not.
func CheckRatingEligibility(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	bookingID := c.Query("booking_id")
	serviceName := c.Query("service")
	if bookingID == "" || serviceName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "booking_id and service are required",
		})
	}

	canonical, err := models.CanRate(db.DB, bookingID, serviceName, userID)
	if err != nil {
		if status, reason := ratingFailure(err); status != 0 {
			return c.JSON(fiber.Map{
				"eligible": false,
				"service":  canonical,
				"reason":   reason,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check eligibility",
		})
	}

	return c.JSON(fiber.Map{
		"eligible": true,
		"service":  canonical,
	})
}

// SubmitRating accepts a multipart form with stars, an optional comment and
// up to 5 photos. Eligibility is re-checked inside the submit path, and the
// database uniqueness constraint settles any race.
func SubmitRating(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	bookingID := c.FormValue("booking_id")
	serviceName := c.FormValue("service_name")
	comment := c.FormValue("comment")
	stars, err := strconv.Atoi(c.FormValue("stars"))
	if err != nil || stars < 1 || stars > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rating must be between 1 and 5",
		})
	}
	if bookingID == "" || serviceName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please fill all required fields",
		})
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	var photoFiles []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		photoFiles = form.File["photos"]
	}
	if len(photoFiles) > models.MaxRatingPhotos {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("At most %d photos are allowed", models.MaxRatingPhotos),
		})
	}

	// pre-check before touching Cloudinary so ineligible callers cost nothing
	canonical, err := models.CanRate(db.DB, bookingID, serviceName, userID)
	if err != nil {
		return ratingError(c, err)
	}

	var photos models.PhotoList
	for i, fh := range photoFiles {
		file, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Failed to read uploaded photo",
			})
		}
		url, err := utils.UploadToCloudinary(file, fmt.Sprintf("rating_%s_%s_%d", bookingID, canonical, i), "ratings")
		file.Close()
		if err != nil {
			log.Printf("Cloudinary upload failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to upload photo",
			})
		}
		photos = append(photos, url)
	}

	rating := models.Rating{
		BookingID: bookingID,
		Stars:     stars,
		Comment:   comment,
		Photos:    photos,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
	}
	if err := models.SubmitRating(db.DB, &rating, serviceName); err != nil {
		return ratingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"message":   fmt.Sprintf("Thank you for rating '%s'!", rating.ServiceName),
		"rating_id": rating.ID,
	})
}

// GetRatings returns all ratings, newest first, with simple pagination.
func GetRatings(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var ratings []models.Rating
	if err := db.DB.Order("created_at DESC").Limit(limit).Offset(offset).Find(&ratings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch ratings",
			Error:   err.Error(),
		})
	}

	var count int64
	db.DB.Model(&models.Rating{}).Count(&count)

	return c.JSON(fiber.Map{
		"ratings": ratings,
		"total":   count,
		"page":    page,
		"limit":   limit,
	})
}

// GetServiceAverages returns the average stars per canonical service name.
func GetServiceAverages(c *fiber.Ctx) error {
	averages, err := models.AveragesByService(db.DB)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to calculate averages",
			Error:   err.Error(),
		})
	}
	return c.JSON(averages)
}

// GetServiceAverage returns the average for one service.
func GetServiceAverage(c *fiber.Ctx) error {
	average, err := models.AverageForService(db.DB, c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to calculate average",
			Error:   err.Error(),
		})
	}
	return c.JSON(average)
}

// DeleteRating removes a rating (admin moderation). The delete is permanent
// so the (booking, service) pair becomes ratable again.
func DeleteRating(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid rating id",
		})
	}

	if err := models.RemoveRating(db.DB, uint(id)); err != nil {
		if errors.Is(err, models.ErrRatingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Rating not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete rating",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ratingFailure maps an eligibility error to (status, reason); status 0
// means the error was not an eligibility outcome.
func ratingFailure(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrBookingNotFound):
		return fiber.StatusNotFound, "booking not found"
	case errors.Is(err, models.ErrNotOwner):
		return fiber.StatusForbidden, "booking belongs to another user"
	case errors.Is(err, models.ErrNotCompleted):
		return fiber.StatusForbidden, "booking is not completed yet"
	case errors.Is(err, models.ErrUnknownService):
		return fiber.StatusForbidden, "this service was not part of the booking"
	case errors.Is(err, models.ErrAlreadyRated):
		return fiber.StatusConflict, "you have already rated this service"
	case errors.Is(err, models.ErrInvalidStars):
		return fiber.StatusBadRequest, "rating must be between 1 and 5"
	case errors.Is(err, models.ErrTooManyPhotos):
		return fiber.StatusBadRequest, fmt.Sprintf("at most %d photos are allowed", models.MaxRatingPhotos)
	default:
		return 0, ""
	}
}

func ratingError(c *fiber.Ctx, err error) error {
	if status, reason := ratingFailure(err); status != 0 {
		return c.Status(status).JSON(fiber.Map{"error": reason})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to submit rating",
	})
}
