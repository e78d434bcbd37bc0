package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	// An in-memory database exists per connection, so the pool must stay at
	// a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&User{}, &Service{}, &Booking{}, &Payment{}, &Rating{}))
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	services := []Service{
		{Name: "Puncturing", Price: 100},
		{Name: "Wheel Alignment", Price: 400},
		{Name: "Vehicle Painting", Price: 5000},
	}
	for i := range services {
		require.NoError(t, db.Create(&services[i]).Error)
	}
}

func createTestBooking(t *testing.T, db *gorm.DB, userID uint, services ...string) *Booking {
	t.Helper()
	list := make(ServiceList, 0, len(services))
	for _, name := range services {
		list = append(list, ServiceItem{Name: name})
	}
	booking := &Booking{
		UserID:        userID,
		Name:          "Darshan K",
		Contact:       "9876543210",
		Email:         "darshan@example.com",
		PreferredDate: time.Now().AddDate(0, 0, 2).Format("2006-01-02"),
		PreferredTime: "10:30",
		Services:      list,
	}
	require.NoError(t, db.Create(booking).Error)
	return booking
}

func TestServiceListDecodesLegacyStrings(t *testing.T) {
	payload := `["Puncturing", {"name": "Wheel Alignment", "amount": 350}]`

	var list ServiceList
	require.NoError(t, json.Unmarshal([]byte(payload), &list))

	require.Len(t, list, 2)
	assert.Equal(t, "Puncturing", list[0].Name)
	assert.Equal(t, float64(0), list[0].Amount)
	assert.Equal(t, "Wheel Alignment", list[1].Name)
	assert.Equal(t, 350.0, list[1].Amount)
}

func TestServiceListContainsIsCaseInsensitive(t *testing.T) {
	list := ServiceList{{Name: "Puncturing"}, {Name: "Wheel Alignment"}}

	assert.True(t, list.Contains("puncturing"))
	assert.True(t, list.Contains("WHEEL ALIGNMENT"))
	assert.False(t, list.Contains("Denting"))
}

func TestValidatePreferredDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidatePreferredDate("2025-06-15", now))
	assert.NoError(t, ValidatePreferredDate("2025-07-01", now))
	assert.ErrorIs(t, ValidatePreferredDate("2025-06-14", now), ErrInvalidDate)
	assert.ErrorIs(t, ValidatePreferredDate("15-06-2025", now), ErrInvalidSchedule)
	assert.ErrorIs(t, ValidatePreferredDate("not-a-date", now), ErrInvalidSchedule)
}

func TestBookingCreateDefaults(t *testing.T) {
	db := setupTestDB(t)

	booking := createTestBooking(t, db, 1, "Puncturing")

	assert.Len(t, booking.BookingID, 8)
	assert.Equal(t, StatusPending, booking.Status)
	assert.Nil(t, booking.CompletedAt)
}

func TestFindBookingByID(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 1, "Puncturing")

	found, err := FindBookingByID(db, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.BookingID, found.BookingID)

	_, err = FindBookingByID(db, "NOPE1234")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCompleteStampsCompletedAt(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 1, "Puncturing")

	require.NoError(t, booking.Complete(db))

	assert.Equal(t, StatusCompleted, booking.Status)
	require.NotNil(t, booking.CompletedAt)
	assert.WithinDuration(t, time.Now(), *booking.CompletedAt, 5*time.Second)
}

func TestTerminalTransitionsAreOneShot(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 1, "Puncturing")

	require.NoError(t, booking.Complete(db))

	assert.ErrorIs(t, booking.Cancel(db, 1), ErrNotPending)
	assert.ErrorIs(t, booking.Reject(db), ErrNotPending)
	assert.ErrorIs(t, booking.Complete(db), ErrNotPending)

	// the stored row kept its first terminal state
	current, err := FindBookingByID(db, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, current.Status)
}

func TestCancelRequiresOwner(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 7, "Puncturing")

	assert.ErrorIs(t, booking.Cancel(db, 8), ErrNotOwner)

	current, err := FindBookingByID(db, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, current.Status)

	assert.NoError(t, booking.Cancel(db, 7))
	assert.Equal(t, StatusCancelled, booking.Status)
}

func TestReschedule(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 1, "Puncturing")

	newDate := time.Now().AddDate(0, 0, 5).Format("2006-01-02")
	require.NoError(t, booking.Reschedule(db, newDate, "16:00"))
	assert.Equal(t, newDate, booking.PreferredDate)
	assert.Equal(t, "16:00", booking.PreferredTime)

	assert.ErrorIs(t, booking.Reschedule(db, "2020-01-01", "16:00"), ErrInvalidDate)
	assert.ErrorIs(t, booking.Reschedule(db, newDate, "4pm"), ErrInvalidSchedule)

	require.NoError(t, booking.Cancel(db, 1))
	assert.ErrorIs(t, booking.Reschedule(db, newDate, "16:00"), ErrNotPending)
}

func TestSetServiceAmounts(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 1, "Puncturing", "Wheel Alignment")

	err := booking.SetServiceAmounts(db, []ServiceItem{
		{Name: "puncturing", Amount: 150},
		{Name: "Wheel Alignment", Amount: 400},
	})
	require.NoError(t, err)

	assert.Equal(t, 550.0, booking.TotalServiceAmount)
	assert.Equal(t, 550.0+BookingFee, booking.TotalAmount)

	current, err := FindBookingByID(db, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, 550.0, current.TotalServiceAmount)
	assert.True(t, current.Services.Contains("Puncturing"))
	assert.Equal(t, 150.0, current.Services[0].Amount)
}

func TestSetServiceAmountsPartialUpdateKeepsOthers(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 1, "Puncturing", "Wheel Alignment")

	require.NoError(t, booking.SetServiceAmounts(db, []ServiceItem{{Name: "Puncturing", Amount: 150}}))
	require.NoError(t, booking.SetServiceAmounts(db, []ServiceItem{{Name: "Wheel Alignment", Amount: 400}}))

	assert.Equal(t, 550.0, booking.TotalServiceAmount)
}

func TestSetServiceAmountsRejectsBadInput(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 1, "Puncturing")

	err := booking.SetServiceAmounts(db, []ServiceItem{{Name: "Denting", Amount: 100}})
	assert.ErrorIs(t, err, ErrUnknownService)

	err = booking.SetServiceAmounts(db, []ServiceItem{{Name: "Puncturing", Amount: -1}})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSetServiceAmountsRejectsTerminalBooking(t *testing.T) {
	db := setupTestDB(t)
	booking := createTestBooking(t, db, 1, "Puncturing")
	require.NoError(t, booking.Complete(db))

	err := booking.SetServiceAmounts(db, []ServiceItem{{Name: "Puncturing", Amount: 150}})
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestBookingLifecycleWithPayments(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)

	booking := createTestBooking(t, db, 3, "Puncturing", "Vehicle Painting")

	token := &Payment{
		BookingID: booking.BookingID,
		Amount:    TokenPaymentAmount,
		Mode:      "upi",
		Type:      PaymentOnline,
		Status:    "recorded",
		UPIRef:    "ref123456",
	}
	require.NoError(t, db.Create(token).Error)

	require.NoError(t, booking.SetServiceAmounts(db, []ServiceItem{
		{Name: "Puncturing", Amount: 120},
		{Name: "Vehicle Painting", Amount: 4800},
	}))
	require.NoError(t, booking.Complete(db))

	assert.Equal(t, 4920.0, booking.TotalServiceAmount)

	manual := &Payment{
		BookingID: booking.BookingID,
		Amount:    4900,
		Mode:      "cash",
		Type:      PaymentManual,
		Status:    "recorded",
	}
	require.NoError(t, db.Create(manual).Error)

	payments, err := PaymentsForBooking(db, booking.BookingID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, TokenPaymentAmount, payments[0].Amount)
	assert.Len(t, payments[0].PaymentID, 8)

	total, err := TotalRecordedPayments(db)
	require.NoError(t, err)
	assert.Equal(t, TokenPaymentAmount+4900, total)
}
