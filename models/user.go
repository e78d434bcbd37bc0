package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserStatus string

type UserRole string

const (
	UserPending  UserStatus = "pending"
	UserApproved UserStatus = "approved"
	UserRejected UserStatus = "rejected"
)

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name"`
	Email        string     `json:"email" gorm:"unique"`
	Phone        string     `json:"phone"`
	Password     string     `json:"password,omitempty"`
	ProfileImage string     `json:"profile_image"`
	Status       UserStatus `json:"status"`
	Role         UserRole   `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Status == "" {
		u.Status = UserPending
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return nil
}

// FindUserByEmail looks up a user case-insensitively.
func FindUserByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	err := db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
