package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
)

const refreshTokenTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	db     *gorm.DB
	auth   *middleware.Authenticator
	tokens RefreshStore
}

func NewAuthHandler(db *gorm.DB, auth *middleware.Authenticator, tokens RefreshStore) *AuthHandler {
	return &AuthHandler{db: db, auth: auth, tokens: tokens}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []string{err.Error()}})
		return
	}

	var existing models.User
	err := h.db.Where("email = ?", input.Email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Err(err).Msg("registration lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during registration"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during registration"})
		return
	}

	user := models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashed),
	}
	if err := h.db.Create(&user).Error; err != nil {
		log.Error().Err(err).Msg("user create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during registration"})
		return
	}

	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during registration"})
		return
	}

	log.Info().Str("email", user.Email).Msg("new user registered")

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
		"token":   token,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []string{err.Error()}})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during login"})
		return
	}

	refreshToken, err := NewRefreshToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during login"})
		return
	}
	if err := h.tokens.Save(c.Request.Context(), refreshToken, user.ID, refreshTokenTTL); err != nil {
		log.Error().Err(err).Msg("refresh token save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during login"})
		return
	}

	log.Info().Str("email", user.Email).Msg("user logged in")

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"user":         user,
		"token":        token,
		"refreshToken": refreshToken,
	})
}

// Refresh exchanges a stored refresh token for a fresh access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []string{err.Error()}})
		return
	}

	userID, err := h.tokens.Lookup(c.Request.Context(), input.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during refresh"})
		return
	}

	token, err := h.auth.IssueToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during refresh"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err == nil && input.RefreshToken != "" {
		if err := h.tokens.Delete(c.Request.Context(), input.RefreshToken); err != nil {
			log.Error().Err(err).Msg("refresh token delete failed")
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Verify reports whether the presented access token identifies a user.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, err := h.auth.Authenticate(middleware.BearerToken(c))
	if err != nil {
		switch {
		case errors.Is(err, middleware.ErrMissingToken),
			errors.Is(err, middleware.ErrInvalidToken),
			errors.Is(err, middleware.ErrTokenExpired),
			errors.Is(err, middleware.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during authentication"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "valid": true})
}
