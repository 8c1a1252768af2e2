package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/models"
)

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "User created successfully", body["message"])
	assert.NotEmpty(t, body["token"])

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, user, "password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.registerUser(t, "alice@example.com")

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Alice Again",
		"email":    "alice@example.com",
		"password": "password456",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "User with this email already exists", body["error"])
	assert.NotContains(t, body, "token")

	var count int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		input gin.H
	}{
		{"missing name", gin.H{"email": "a@b.com", "password": "password123"}},
		{"short name", gin.H{"name": "A", "email": "a@b.com", "password": "password123"}},
		{"bad email", gin.H{"name": "Alice", "email": "not-an-email", "password": "password123"}},
		{"short password", gin.H{"name": "Alice", "email": "a@b.com", "password": "123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/auth/register", "", tt.input)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "Validation error", body["error"])
			assert.NotEmpty(t, body["details"])
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.registerUser(t, "alice@example.com")

	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refreshToken"])
}

func TestLoginBadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.registerUser(t, "alice@example.com")

	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"wrong password", "alice@example.com", "wrong-password"},
		{"unknown email", "bob@example.com", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
				"email":    tt.email,
				"password": tt.pass,
			})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Invalid email or password", decodeBody(t, w)["error"])
		})
	}
}

func TestVerify(t *testing.T) {
	s := newTestServer(t)
	token := s.registerUser(t, "alice@example.com")

	w := s.do(t, http.MethodGet, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["valid"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["email"])
}

func TestAuthErrorReasons(t *testing.T) {
	s := newTestServer(t)
	s.registerUser(t, "alice@example.com")

	expired := signToken(t, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	unknownUser := signToken(t, jwt.MapClaims{
		"user_id": 9999,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"missing token", "", "Access token required"},
		{"garbage token", "not-a-jwt", "Invalid token"},
		{"expired token", expired, "Token expired"},
		{"unknown user", unknownUser, "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/investments", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.want, decodeBody(t, w)["error"])

			w = s.do(t, http.MethodGet, "/api/auth/verify", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.want, decodeBody(t, w)["error"])
		})
	}
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.registerUser(t, "alice@example.com")

	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	refreshToken := decodeBody(t, w)["refreshToken"].(string)

	w = s.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": refreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	newToken := decodeBody(t, w)["token"].(string)

	w = s.do(t, http.MethodGet, "/api/auth/verify", newToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/logout", "", gin.H{"refreshToken": refreshToken})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": refreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid refresh token", decodeBody(t, w)["error"])
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}
