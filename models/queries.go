package models

import (
	"strings"

	"gorm.io/gorm"
)

// PostFilter narrows the post listing. Zero values mean "no constraint";
// OwnerID restricts to a single author (profile views).
type PostFilter struct {
	CategoryID uint
	Search     string
	OwnerID    uint
	Page       int
	PageSize   int
}

// Pagination describes the returned page for client side controls.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListPosts returns one page of posts ordered by publication date descending.
// The category filter and the case-insensitive title/content search compose
// with AND. Out-of-range page numbers clamp to the nearest valid page.
// actorID fills the LikedByMe flag and may be zero.
func ListPosts(db *gorm.DB, f PostFilter, actorID uint) ([]Post, Pagination, error) {
	if f.PageSize <= 0 {
		f.PageSize = 10
	}

	query := db.Model(&Post{})
	if f.CategoryID != 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}
	if f.OwnerID != 0 {
		query = query.Where("user_id = ?", f.OwnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	totalPages := int((total + int64(f.PageSize) - 1) / int64(f.PageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	// non-nil so an empty page serializes as [] rather than null
	posts := make([]Post, 0, f.PageSize)
	err := query.
		Preload("User").
		Preload("Category").
		Order("publication_date DESC, id DESC").
		Offset((page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&posts).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	if err := FillLikeMeta(db, posts, actorID); err != nil {
		return nil, Pagination{}, err
	}

	return posts, Pagination{Page: page, PageSize: f.PageSize, Total: total, TotalPages: totalPages}, nil
}

// GetPostDetail loads a post with its category, author and comments, newest
// comment first. Returns gorm.ErrRecordNotFound when the id does not exist.
func GetPostDetail(db *gorm.DB, id uint, actorID uint) (*Post, error) {
	var post Post
	err := db.
		Preload("User").
		Preload("Category").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at DESC, id DESC").Preload("User")
		}).
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	posts := []Post{post}
	if err := FillLikeMeta(db, posts, actorID); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// FillLikeMeta computes like counts and, when actorID is non-zero, whether
// the actor likes each post.
func FillLikeMeta(db *gorm.DB, posts []Post, actorID uint) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	type likeRow struct {
		PostID uint
		N      int64
	}
	var rows []likeRow
	err := db.Model(&PostLike{}).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.N
	}

	mine := map[uint]bool{}
	if actorID != 0 {
		var likedIDs []uint
		err := db.Model(&PostLike{}).
			Where("user_id = ? AND post_id IN ?", actorID, ids).
			Pluck("post_id", &likedIDs).Error
		if err != nil {
			return err
		}
		for _, id := range likedIDs {
			mine[id] = true
		}
	}

	for i := range posts {
		posts[i].LikeCount = counts[posts[i].ID]
		posts[i].LikedByMe = mine[posts[i].ID]
	}
	return nil
}
