package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"goblog/auth"
)

// ContextUserKey stores the full user model for HTML handlers.
const ContextUserKey = "current_user"

// WebAuthRequired resolves the session cookie and redirects anonymous
// visitors to the login page. On success the user is exposed through the
// same context keys the API middleware uses.
func WebAuthRequired(sessions *auth.Manager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := sessions.CurrentUser(ctx)
		if !ok {
			ctx.Redirect(http.StatusFound, "/login")
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUsernameKey, user.Username)
		ctx.Set(ContextUserKey, user)
		ctx.Next()
	}
}
