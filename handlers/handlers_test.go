package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
)

const testSecret = "test-secret"

var testDBCounter int64

// memRefreshStore is an in-memory RefreshStore for tests.
type memRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]uint
}

func newMemRefreshStore() *memRefreshStore {
	return &memRefreshStore{tokens: make(map[string]uint)}
}

func (s *memRefreshStore) Save(_ context.Context, token string, userID uint, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
	return nil
}

func (s *memRefreshStore) Lookup(_ context.Context, token string) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return 0, ErrRefreshTokenNotFound
	}
	return id, nil
}

func (s *memRefreshStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *middleware.Authenticator
	tokens *memRefreshStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:test%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Investment{}, &models.Transaction{}))

	auth := middleware.NewAuthenticator(db, testSecret)
	tokens := newMemRefreshStore()

	return &testServer{
		router: NewRouter(db, auth, tokens),
		db:     db,
		auth:   auth,
		tokens: tokens,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerUser creates a user through the API and returns its access
// token.
func (s *testServer) registerUser(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Test User",
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

// createInvestment adds a holding through the API and returns its id.
func (s *testServer) createInvestment(t *testing.T, token string, fields gin.H) uint {
	t.Helper()
	input := gin.H{
		"symbol":        "AAPL",
		"name":          "Apple Inc.",
		"type":          models.TypeStock,
		"quantity":      "10",
		"purchasePrice": "100",
		"currentPrice":  "150",
	}
	for k, v := range fields {
		input[k] = v
	}
	w := s.do(t, http.MethodPost, "/api/investments", token, input)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	investment := body["investment"].(map[string]interface{})
	return uint(investment["id"].(float64))
}
