// Package testutils provides shared helpers for handler and model tests:
// an isolated in-memory database per test and small request/fixture helpers.
package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"goblog/models"
	"goblog/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-secret")
	}
}

// SetupTestDB opens a fresh in-memory database named after the test and
// migrates the full schema. Each test gets its own database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared-cache memory database alive and
	// serializes writes the way the production pool does not need to.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.Session{},
		&models.PageView{},
		&models.UploadedFile{},
	))
	return db
}

// CreateUser inserts a user with a bcrypt hash of the given password.
func CreateUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Username: username, PasswordHash: hash}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateCategory inserts a category.
func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	require.NoError(t, db.Create(category).Error)
	return category
}

// CreatePost inserts a post with an explicit publication date so ordering
// assertions stay deterministic.
func CreatePost(t *testing.T, db *gorm.DB, user *models.User, category *models.Category, title string, publishedAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:          user.ID,
		CategoryID:      category.ID,
		Title:           title,
		Content:         "content of " + title,
		PublicationDate: publishedAt,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

var tokenSerial atomic.Int64

// AccessToken issues a short-lived access token for the user. The lifetime
// varies per call so tokens for identical identities issued within the same
// second stay distinct; otherwise a token revoked by one test (JWT claims
// have one-second granularity) would be byte-identical to another test's
// token and trip the process-global blacklist.
func AccessToken(t *testing.T, user *models.User) string {
	t.Helper()
	lifetime := time.Hour + time.Duration(tokenSerial.Add(1))*time.Second
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTypeAccess, lifetime)
	require.NoError(t, err)
	return token
}

// PerformRequest runs one request against the handler and records the response.
func PerformRequest(handler *gin.Engine, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// JSONHeaders returns headers for an authenticated JSON request. An empty
// token leaves the Authorization header out.
func JSONHeaders(token string) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return h
}

// Envelope mirrors the API response structure with loosely typed data.
type Envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

// DecodeEnvelope parses the recorded response body.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
