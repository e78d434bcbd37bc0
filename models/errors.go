package models

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotPending      = errors.New("booking is not pending")
	ErrNotOwner        = errors.New("booking belongs to another user")
	ErrInvalidAmount   = errors.New("service amount must not be negative")
	ErrInvalidDate     = errors.New("preferred date cannot be in the past")
	ErrInvalidSchedule = errors.New("invalid date or time format")
	ErrUnknownService  = errors.New("unknown service for this booking")
	ErrNotCompleted    = errors.New("booking is not completed yet")
	ErrAlreadyRated    = errors.New("service already rated for this booking")
	ErrInvalidStars    = errors.New("stars must be between 1 and 5")
	ErrTooManyPhotos   = errors.New("too many rating photos")
	ErrRatingNotFound  = errors.New("rating not found")
	ErrServiceNotFound = errors.New("service not found")
	ErrUserNotFound    = errors.New("user not found")
)
