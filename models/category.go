package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups posts. Names are unique across the table.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Posts     []Post    `json:"-"`
}

// BeforeDelete removes all posts of the category inside the same transaction.
// Posts are deleted one by one so their own cascade hooks run too.
func (c *Category) BeforeDelete(tx *gorm.DB) error {
	var posts []Post
	if err := tx.Where("category_id = ?", c.ID).Find(&posts).Error; err != nil {
		return err
	}
	for i := range posts {
		if err := tx.Delete(&posts[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
