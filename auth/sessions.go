// Package auth implements the cookie session store backing the HTML surface.
// The JSON API authenticates with JWTs instead; see middleware.AuthRequired.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"goblog/models"
)

// SessionCookie is the name of the login cookie used by the HTML pages.
const SessionCookie = "goblog_session"

// Manager creates, resolves and destroys database backed sessions.
type Manager struct {
	db     *gorm.DB
	maxAge time.Duration
}

// NewManager returns a session manager with the given session lifetime.
func NewManager(db *gorm.DB, maxAge time.Duration) *Manager {
	return &Manager{db: db, maxAge: maxAge}
}

// Create opens a new session for the user and sets the login cookie.
func (m *Manager) Create(ctx *gin.Context, userID uint) error {
	session := models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.maxAge),
	}
	if err := m.db.Create(&session).Error; err != nil {
		return err
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(SessionCookie, session.ID, int(m.maxAge/time.Second), "/", "", false, true)
	return nil
}

// Destroy deletes the current session row and clears the cookie.
func (m *Manager) Destroy(ctx *gin.Context) {
	if id, err := ctx.Cookie(SessionCookie); err == nil && id != "" {
		m.db.Delete(&models.Session{}, "id = ?", id)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}

// CurrentUser resolves the request's session cookie to a user. Expired
// sessions are removed on sight.
func (m *Manager) CurrentUser(ctx *gin.Context) (*models.User, bool) {
	id, err := ctx.Cookie(SessionCookie)
	if err != nil || id == "" {
		return nil, false
	}

	var session models.Session
	if err := m.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, false
	}
	if time.Now().After(session.ExpiresAt) {
		m.db.Delete(&models.Session{}, "id = ?", session.ID)
		return nil, false
	}

	var user models.User
	if err := m.db.First(&user, session.UserID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false
		}
		// account gone; drop the stale session
		m.db.Delete(&models.Session{}, "id = ?", session.ID)
		return nil, false
	}
	return &user, true
}
