package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"portfolio-tracker/models"
)

// Authentication failures, each mapped to its own 401 message so
// clients can tell them apart.
var (
	ErrMissingToken = errors.New("Access token required")
	ErrInvalidToken = errors.New("Invalid token")
	ErrTokenExpired = errors.New("Token expired")
	ErrUserNotFound = errors.New("User not found")
)

const userKey = "user"

// Authenticator verifies access tokens and resolves them to users.
type Authenticator struct {
	db     *gorm.DB
	secret []byte
}

func NewAuthenticator(db *gorm.DB, secret string) *Authenticator {
	return &Authenticator{db: db, secret: []byte(secret)}
}

// IssueToken signs a 7-day HS256 access token for the given user.
func (a *Authenticator) IssueToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate parses and verifies a bearer token and loads the user
// it identifies. All failures come back as one of the sentinel errors
// above.
func (a *Authenticator) Authenticate(tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := a.db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// RequireAuth guards a route group, storing the authenticated user in
// the request context.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.Authenticate(BearerToken(c))
		if err != nil {
			switch {
			case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidToken),
				errors.Is(err, ErrTokenExpired), errors.Is(err, ErrUserNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during authentication"})
			}
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// BearerToken extracts the token from the Authorization header, empty
// when absent.
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}
