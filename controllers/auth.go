package controllers

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/kulaladarsh/tyreworks-app/db"
	"github.com/kulaladarsh/tyreworks-app/models"
	"github.com/kulaladarsh/tyreworks-app/otp"
	"github.com/kulaladarsh/tyreworks-app/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var validate = validator.New()

// OTPManager is wired in main before the routes are mounted.
var OTPManager *otp.Manager

// Register handles customer signup. New accounts start in pending status
// until an admin approves them.
func Register(c *fiber.Ctx) error {
	type RegisterInput struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Phone    string `json:"phone" validate:"required,numeric,min=10,max=15"`
		Password string `json:"password" validate:"required,min=6"`
	}

	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid signup data: " + err.Error(),
		})
	}

	if _, err := models.FindUserByEmail(db.DB, input.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "User with this email already exists",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	user := models.User{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Password: string(hashedPassword),
		Role:     models.RoleCustomer,
		Status:   models.UserPending,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		log.Printf("Error creating user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles password authentication. Used by admins and by customers who
// prefer a password over the OTP flow.
func Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	user, err := models.FindUserByEmail(db.DB, input.Email)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if user.Status != models.UserApproved {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is not approved yet",
		})
	}

	return issueSession(c, user)
}

// RequestOTP issues a one-time code for the given purpose and emails it.
func RequestOTP(c *fiber.Ctx) error {
	type OTPRequest struct {
		Purpose string `json:"purpose" validate:"required,oneof=login prebook reset"`
		Email   string `json:"email" validate:"required,email"`
	}

	input := new(OTPRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid OTP request: " + err.Error(),
		})
	}

	purpose := otp.Purpose(input.Purpose)

	// login and reset codes only make sense for known accounts
	if purpose == otp.PurposeLogin || purpose == otp.PurposeReset {
		if _, err := models.FindUserByEmail(db.DB, input.Email); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No account found for this email",
			})
		}
	}

	code, err := OTPManager.Issue(purpose, input.Email)
	if err != nil {
		var cooldown *otp.CooldownError
		switch {
		case errors.Is(err, otp.ErrRateLimited):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.As(err, &cooldown):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":            cooldown.Error(),
				"retry_after_secs": int(cooldown.Remaining.Seconds()),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to generate OTP",
			})
		}
	}

	subject := fmt.Sprintf("Your OTP for %s", input.Purpose)
	body := fmt.Sprintf(`
		<p>Hello,</p>
		<p>Your one-time password is:</p>
		<h2>%s</h2>
		<p>It will expire in 5 minutes. Do not share this code with anyone.</p>
		<p>Annapoorneshwari Tyre &amp; Painting Works</p>
	`, code)
	if err := utils.SendEmail(input.Email, subject, body); err != nil {
		log.Printf("Failed to send OTP email to %s: %v", input.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send OTP email",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// VerifyOTP checks a submitted code. For login a session token is returned;
// for prebook a customer account is provisioned on the fly so the booking is
// owned by a durable identity.
func VerifyOTP(c *fiber.Ctx) error {
	type VerifyInput struct {
		Purpose string `json:"purpose" validate:"required,oneof=login prebook"`
		Email   string `json:"email" validate:"required,email"`
		Code    string `json:"code" validate:"required,len=6"`
	}

	input := new(VerifyInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid OTP data: " + err.Error(),
		})
	}

	if err := OTPManager.Verify(otp.Purpose(input.Purpose), input.Email, input.Code); err != nil {
		return otpVerifyError(c, err)
	}

	user, err := models.FindUserByEmail(db.DB, input.Email)
	if err != nil {
		if input.Purpose != string(otp.PurposePrebook) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No account found for this email",
			})
		}
		user = &models.User{
			Email:  input.Email,
			Role:   models.RoleCustomer,
			Status: models.UserApproved,
		}
		if err := db.DB.Create(user).Error; err != nil {
			log.Printf("Error provisioning user for %s: %v", input.Email, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create user",
			})
		}
	}

	return issueSession(c, user)
}

// ResetPassword verifies a reset OTP and sets the new password in one call.
func ResetPassword(c *fiber.Ctx) error {
	type ResetInput struct {
		Email       string `json:"email" validate:"required,email"`
		Code        string `json:"code" validate:"required,len=6"`
		NewPassword string `json:"new_password" validate:"required,min=6"`
	}

	input := new(ResetInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid reset data: " + err.Error(),
		})
	}

	user, err := models.FindUserByEmail(db.DB, input.Email)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No account found for this email",
		})
	}

	if err := OTPManager.Verify(otp.PurposeReset, input.Email, input.Code); err != nil {
		return otpVerifyError(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	if err := db.DB.Model(user).Update("password", string(hashedPassword)).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update password",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

func otpVerifyError(c *fiber.Ctx, err error) error {
	var invalid *otp.InvalidCodeError
	switch {
	case errors.Is(err, otp.ErrNoChallenge):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, otp.ErrExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":              invalid.Error(),
			"remaining_attempts": invalid.Remaining,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "OTP verification failed",
		})
	}
}

func issueSession(c *fiber.Ctx, user *models.User) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "solid_secret_key" // Replace with secure key in production
	}

	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"exp":   time.Now().Add(time.Hour * 24).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	refreshClaims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"exp":   time.Now().Add(time.Hour * 24 * 7).Unix(),
	}
	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(secret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate refresh token",
		})
	}

	return c.JSON(fiber.Map{
		"token":        tokenString,
		"refreshToken": refreshTokenString,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// RefreshToken generates a new access token using a refresh token
func RefreshToken(c *fiber.Ctx) error {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken"`
	}

	refreshRequest := new(RefreshRequest)
	if err := c.BodyParser(refreshRequest); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "solid_secret_key"
	}

	token, err := jwt.Parse(refreshRequest.RefreshToken, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid refresh token",
		})
	}

	claims := token.Claims.(jwt.MapClaims)
	userID, ok := claims["id"].(float64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid refresh token",
		})
	}

	var user models.User
	if err := db.DB.First(&user, uint(userID)).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return issueSession(c, &user)
}

// GetUserProfile returns the current user's profile
func GetUserProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch user",
		})
	}

	user.Password = ""
	return c.JSON(user)
}

// UpdateProfilePicture uploads a new profile image to Cloudinary.
func UpdateProfilePicture(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Image file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open uploaded file",
		})
	}
	defer file.Close()

	url, err := utils.UploadToCloudinary(file, fmt.Sprintf("profile_%d", userID), "profiles")
	if err != nil {
		log.Printf("Cloudinary upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to upload image",
		})
	}

	if err := db.DB.Model(&models.User{}).Where("id = ?", userID).Update("profile_image", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save profile image",
		})
	}

	return c.JSON(fiber.Map{"profile_image": url})
}
