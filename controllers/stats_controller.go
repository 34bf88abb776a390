package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/models"
	"goblog/utils"
)

// StatsController provides aggregate blog statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns entity counts plus today's page views.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount, postCount, commentCount, categoryCount, viewsToday int64

	// Fall back to 0 instead of failing the whole endpoint.
	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := s.db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := s.db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}
	if err := s.db.Model(&models.Category{}).Count(&categoryCount).Error; err != nil {
		categoryCount = 0
	}

	// Use string date equality to avoid timezone/type mismatches with DATE columns.
	today := time.Now().In(time.Local).Format("2006-01-02")
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&viewsToday).Error; err != nil {
		viewsToday = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":     userCount,
		"post_count":     postCount,
		"comment_count":  commentCount,
		"category_count": categoryCount,
		"views_today":    viewsToday,
	})
}
