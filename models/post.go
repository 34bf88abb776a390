package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a blog post created by a user. The owner and the
// publication date are fixed at creation time and never change.
type Post struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	CategoryID      uint      `gorm:"index;not null" json:"category_id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	Image           string    `gorm:"size:512" json:"image,omitempty"`
	PublicationDate time.Time `gorm:"index;not null" json:"publication_date"`
	UpdatedAt       time.Time `json:"updated_at"`

	User     User      `json:"author"`
	Category Category  `json:"category"`
	Comments []Comment `json:"comments,omitempty"`

	// Computed per request, not stored.
	LikeCount int64 `gorm:"-" json:"like_count"`
	LikedByMe bool  `gorm:"-" json:"liked_by_me"`
}

// PostLike marks that a user likes a post. The composite primary key keeps
// a user at most once in a post's like set.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate stamps the publication date once.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.PublicationDate.IsZero() {
		p.PublicationDate = time.Now()
	}
	return nil
}

// BeforeDelete removes comments and likes of the post inside the same transaction.
func (p *Post) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Where("post_id = ?", p.ID).Delete(&Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("post_id = ?", p.ID).Delete(&PostLike{}).Error
}
