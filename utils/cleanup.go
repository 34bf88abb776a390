package utils

import (
	"os"
	"time"

	"gorm.io/gorm"

	"goblog/models"
)

// StartUploadCleaner launches a background goroutine that periodically
// deletes uploaded images no longer referenced by any post. Files younger
// than gracePeriod are kept so an upload in a half-filled form survives.
// It is best-effort and logs failures.
func StartUploadCleaner(db *gorm.DB, interval, gracePeriod time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if gracePeriod <= 0 {
		gracePeriod = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup.
			time.Sleep(interval)
			cleanOrphanUploads(db, gracePeriod)
		}
	}()
}

func cleanOrphanUploads(db *gorm.DB, gracePeriod time.Duration) {
	var items []models.UploadedFile
	cutoff := time.Now().Add(-gracePeriod)
	err := db.
		Where("created_at <= ?", cutoff).
		Where("url NOT IN (?)", db.Model(&models.Post{}).Select("image").Where("image <> ''")).
		Limit(100).
		Find(&items).Error
	if err != nil {
		if Sugar != nil {
			Sugar.Warnf("upload cleaner query failed: %v", err)
		}
		return
	}
	for _, it := range items {
		if it.FilePath != "" {
			_ = os.Remove(it.FilePath)
		}
		// Remove the row regardless of file deletion outcome.
		if err := db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil && Sugar != nil {
			Sugar.Warnf("upload cleaner delete row failed: %v", err)
		}
	}
}
