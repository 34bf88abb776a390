package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"goblog/models"
)

// PageViewRecorder counts successful page loads per day and path. Only the
// HTML surface is counted; API traffic, static assets and the health probe
// would skew the numbers.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 400 {
			return
		}
		path := c.Request.URL.Path
		if skipPageView(path) {
			return
		}

		// Align on local midnight so the row matches the DATE column.
		now := time.Now()
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		// Upsert keeps concurrent requests from racing on the unique index.
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Date: day, Path: path, Count: 1}).Error
	}
}

func skipPageView(path string) bool {
	return path == "/health" ||
		strings.HasPrefix(path, "/api/") ||
		strings.HasPrefix(path, "/static/")
}
