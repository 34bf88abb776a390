package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"goblog/models"
)

// SaveUpload stores an uploaded post image under uploadDir/YYYY/MM/DD with a
// random name and records it for later orphan cleanup. Returns the public URL.
func SaveUpload(db *gorm.DB, fh *multipart.FileHeader, uploadDir string) (string, error) {
	now := time.Now()
	baseDir := filepath.Join(uploadDir, now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := uuid.NewString() + ext
	dstPath := filepath.Join(baseDir, name)

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("write upload: %w", err)
	}

	url := "/" + filepath.ToSlash(dstPath)
	absPath, err := filepath.Abs(dstPath)
	if err != nil {
		absPath = dstPath
	}
	if err := db.Create(&models.UploadedFile{FilePath: absPath, URL: url}).Error; err != nil {
		if Sugar != nil {
			Sugar.Warnf("failed to record upload %s: %v", url, err)
		}
	}
	return url, nil
}
