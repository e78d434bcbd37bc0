package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCanonicalServiceName(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)

	assert.Equal(t, "Puncturing", CanonicalServiceName(db, "puncturing"))
	assert.Equal(t, "Wheel Alignment", CanonicalServiceName(db, "  WHEEL ALIGNMENT "))
	assert.Equal(t, "Puncturing", CanonicalServiceName(db, "Puncturing"))

	// not in the catalog, so the raw name is only tidied up
	assert.Equal(t, "Engine Work", CanonicalServiceName(db, "engine work"))
	assert.Equal(t, "", CanonicalServiceName(db, "   "))
}

func TestCanRate(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	booking := createTestBooking(t, db, 5, "Puncturing", "Wheel Alignment")

	_, err := CanRate(db, "NOPE1234", "Puncturing", 5)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = CanRate(db, booking.BookingID, "Puncturing", 6)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = CanRate(db, booking.BookingID, "Puncturing", 5)
	assert.ErrorIs(t, err, ErrNotCompleted)

	require.NoError(t, booking.Complete(db))

	_, err = CanRate(db, booking.BookingID, "Vehicle Painting", 5)
	assert.ErrorIs(t, err, ErrUnknownService)

	canonical, err := CanRate(db, booking.BookingID, "puncturing", 5)
	require.NoError(t, err)
	assert.Equal(t, "Puncturing", canonical)
}

func TestSubmitRating(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	booking := createTestBooking(t, db, 5, "Puncturing", "Wheel Alignment")
	require.NoError(t, booking.Complete(db))

	rating := &Rating{
		BookingID: booking.BookingID,
		Stars:     4,
		Comment:   "Quick and clean work",
		UserID:    5,
		UserName:  "Darshan K",
	}
	require.NoError(t, SubmitRating(db, rating, "puncturing"))
	assert.Equal(t, "Puncturing", rating.ServiceName)

	// same (booking, service) pair cannot be rated twice
	dup := &Rating{BookingID: booking.BookingID, Stars: 5, UserID: 5}
	assert.ErrorIs(t, SubmitRating(db, dup, "PUNCTURING"), ErrAlreadyRated)

	// another service under the same booking still works
	other := &Rating{BookingID: booking.BookingID, Stars: 5, UserID: 5}
	assert.NoError(t, SubmitRating(db, other, "Wheel Alignment"))
}

func TestSubmitRatingValidation(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	booking := createTestBooking(t, db, 5, "Puncturing")
	require.NoError(t, booking.Complete(db))

	err := SubmitRating(db, &Rating{BookingID: booking.BookingID, Stars: 0, UserID: 5}, "Puncturing")
	assert.ErrorIs(t, err, ErrInvalidStars)

	err = SubmitRating(db, &Rating{BookingID: booking.BookingID, Stars: 6, UserID: 5}, "Puncturing")
	assert.ErrorIs(t, err, ErrInvalidStars)

	tooMany := &Rating{
		BookingID: booking.BookingID,
		Stars:     5,
		UserID:    5,
		Photos:    PhotoList{"a", "b", "c", "d", "e", "f"},
	}
	err = SubmitRating(db, tooMany, "Puncturing")
	assert.ErrorIs(t, err, ErrTooManyPhotos)
}

func TestRatingUniqueIndexIsFinalAuthority(t *testing.T) {
	db := setupTestDB(t)

	first := &Rating{BookingID: "AB12CD34", ServiceName: "Puncturing", Stars: 4, UserID: 1}
	require.NoError(t, db.Create(first).Error)

	second := &Rating{BookingID: "AB12CD34", ServiceName: "Puncturing", Stars: 5, UserID: 1}
	err := db.Create(second).Error
	require.Error(t, err)
}

func TestSubmitRatingLosesRaceToConcurrentInsert(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	booking := createTestBooking(t, db, 5, "Puncturing")
	require.NoError(t, booking.Complete(db))

	// slip a conflicting row in after the eligibility check has passed but
	// before the insert, the way a second submission would under load
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("conflicting_insert", func(tx *gorm.DB) {
		if injected {
			return
		}
		if _, ok := tx.Statement.Dest.(*Rating); !ok {
			return
		}
		injected = true
		rival := &Rating{BookingID: booking.BookingID, ServiceName: "Puncturing", Stars: 3, UserID: 5}
		require.NoError(t, db.Create(rival).Error)
	})
	require.NoError(t, err)

	rating := &Rating{BookingID: booking.BookingID, Stars: 5, UserID: 5}
	assert.ErrorIs(t, SubmitRating(db, rating, "Puncturing"), ErrAlreadyRated)
}

func TestRemovedRatingPairIsRatableAgain(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	booking := createTestBooking(t, db, 5, "Puncturing")
	require.NoError(t, booking.Complete(db))

	rating := &Rating{BookingID: booking.BookingID, Stars: 2, UserID: 5}
	require.NoError(t, SubmitRating(db, rating, "Puncturing"))

	require.NoError(t, RemoveRating(db, rating.ID))

	// the removal must free the unique index slot, not just hide the row
	_, err := CanRate(db, booking.BookingID, "Puncturing", 5)
	require.NoError(t, err)
	again := &Rating{BookingID: booking.BookingID, Stars: 4, UserID: 5}
	assert.NoError(t, SubmitRating(db, again, "Puncturing"))

	assert.ErrorIs(t, RemoveRating(db, 99999), ErrRatingNotFound)
}

func TestServiceAverages(t *testing.T) {
	db := setupTestDB(t)

	ratings := []Rating{
		{BookingID: "B0000001", ServiceName: "Puncturing", Stars: 3, UserID: 1},
		{BookingID: "B0000002", ServiceName: "Puncturing", Stars: 4, UserID: 2},
		{BookingID: "B0000003", ServiceName: "Puncturing", Stars: 4, UserID: 3},
		{BookingID: "B0000001", ServiceName: "Wheel Alignment", Stars: 5, UserID: 1},
	}
	for i := range ratings {
		require.NoError(t, db.Create(&ratings[i]).Error)
	}

	avg, err := AverageForService(db, "puncturing")
	require.NoError(t, err)
	assert.Equal(t, "Puncturing", avg.ServiceName)
	assert.Equal(t, 3.7, avg.Average)
	assert.Equal(t, int64(3), avg.Count)

	all, err := AveragesByService(db)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Puncturing", all[0].ServiceName)
	assert.Equal(t, 3.7, all[0].Average)
	assert.Equal(t, "Wheel Alignment", all[1].ServiceName)
	assert.Equal(t, 5.0, all[1].Average)
}

func TestAverageForServiceWithNoRatings(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)

	avg, err := AverageForService(db, "puncturing")
	require.NoError(t, err)
	assert.Equal(t, "Puncturing", avg.ServiceName)
	assert.Equal(t, 0.0, avg.Average)
	assert.Equal(t, int64(0), avg.Count)
}

func TestPhotoListRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	rating := &Rating{
		BookingID:   "B0000009",
		ServiceName: "Puncturing",
		Stars:       5,
		UserID:      1,
		Photos:      PhotoList{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	}
	require.NoError(t, db.Create(rating).Error)

	var loaded Rating
	require.NoError(t, db.First(&loaded, rating.ID).Error)
	assert.Equal(t, rating.Photos, loaded.Photos)
}
