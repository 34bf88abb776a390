package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TogglePostLike removes the (post, user) like when present, otherwise adds
// it. The delete reports how many rows it touched and the insert ignores a
// concurrent duplicate, so the toggle never loses updates. Returns whether
// the user likes the post afterwards.
func TogglePostLike(db *gorm.DB, postID, userID uint) (bool, error) {
	res := db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&PostLike{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	like := PostLike{PostID: postID, UserID: userID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
		return false, err
	}
	return true, nil
}
