package user_controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/models/user_models"
	"github.com/clinicbook/backend/utils"
	"github.com/clinicbook/backend/utils/apperrors"
	"github.com/clinicbook/backend/utils/mail"
	"github.com/clinicbook/backend/utils/shared_utils"
)

// UserController handles registration, email verification and login.
type UserController struct {
	DB     *mongo.Database
	Mailer mail.Mailer
}

// NewUserController creates a new UserController.
func NewUserController(db *mongo.Database, mailer mail.Mailer) *UserController {
	return &UserController{DB: db, Mailer: mailer}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

// Register handles POST /register.
func (uc *UserController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	user, err := user_models.CreateUser(c.Request.Context(), uc.DB, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}

	uc.sendVerificationOTP(c, user)

	c.JSON(http.StatusCreated, gin.H{
		"message": "registered; check your email for the verification code",
		"user":    user,
	})
}

func (uc *UserController) sendVerificationOTP(c *gin.Context, user *user_models.User) {
	otp := utils.GenerateSecureOTP()
	key := shared_utils.EMAIL_VERIFICATION_OTP_PREFIX + user.Email
	if err := shared_utils.StoreOTP(c.Request.Context(), key, otp); err != nil {
		logger.ErrorLogger.Errorf("Failed to store verification OTP for %s: %v", user.Email, err)
		return
	}

	go func(to, firstName, code string) {
		data := mail.VerificationOTPData{
			FirstName: firstName,
			OTP:       code,
			Minutes:   shared_utils.OTP_EXPIRATION_MINUTES,
		}
		if err := mail.SendVerificationOTP(uc.Mailer, to, data); err != nil {
			logger.ErrorLogger.Errorf("Failed to send verification OTP to %s: %v", to, err)
		}
	}(user.Email, user.FirstName, otp)
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

// VerifyEmail handles POST /verify-email.
func (uc *UserController) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	user, err := user_models.GetUserByEmail(c.Request.Context(), uc.DB, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	key := shared_utils.EMAIL_VERIFICATION_OTP_PREFIX + user.Email
	ok, err := shared_utils.VerifyOTP(c.Request.Context(), key, req.OTP)
	if err != nil {
		if err == shared_utils.ErrOTPNotFound {
			c.JSON(http.StatusBadRequest, gin.H{"error": "verification code expired; request a new one"})
			return
		}
		logger.ErrorLogger.Errorf("OTP verification error for %s: %v", user.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification code"})
		return
	}

	if err := user_models.MarkEmailVerified(c.Request.Context(), uc.DB, user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendOTP handles POST /resend-otp.
func (uc *UserController) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	user, err := user_models.GetUserByEmail(c.Request.Context(), uc.DB, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	if user.IsVerifiedEmail {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is already verified"})
		return
	}

	uc.sendVerificationOTP(c, user)
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /login.
func (uc *UserController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	user, err := user_models.GetUserByEmail(c.Request.Context(), uc.DB, req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		respondError(c, err)
		return
	}

	ok, err := user_models.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	userUUID, err := uuid.Parse(user.ID)
	if err != nil {
		logger.ErrorLogger.Errorf("User %s has malformed id: %v", user.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	token, err := shared_models.GenerateAccessToken(userUUID, shared_models.ACCESS_TOKEN_EXPIRY)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to generate token for user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "user": user})
}

// Profile handles GET /profile.
func (uc *UserController) Profile(c *gin.Context) {
	v, exists := c.Get("user_id")
	userID, okType := v.(string)
	if !exists || !okType || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := user_models.GetUserByID(c.Request.Context(), uc.DB, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func respondError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.ErrorLogger.Errorf("Unexpected error: %v", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
