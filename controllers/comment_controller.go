package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/forms"
	"goblog/models"
	"goblog/utils"
)

// CommentController exposes the flat comment collection. Comments are
// immutable after creation, so the collection supports create, read and
// delete but no update. Any authenticated user may delete any comment.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// ListComments returns all comments, newest first.
func (c *CommentController) ListComments(ctx *gin.Context) {
	comments := make([]models.Comment, 0)
	err := c.db.Preload("User").Order("created_at DESC, id DESC").Find(&comments).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to list comments")
		return
	}
	utils.Success(ctx, gin.H{"items": comments})
}

// GetComment returns a single comment.
func (c *CommentController) GetComment(ctx *gin.Context) {
	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{"comment": comment})
}

// CreateComment attaches a comment to the referenced post. The author is
// the authenticated caller.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		PostID  uint   `json:"post_id"`
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	content, errs := forms.CommentInput{Content: req.Content}.ValidateComment()
	var post models.Post
	if req.PostID == 0 {
		errs.Add("post_id", "post is required")
	} else if err := c.db.First(&post, req.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			errs.Add("post_id", "post does not exist")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load post")
			return
		}
	}
	if errs.Any() {
		utils.ValidationError(ctx, 40061, errs)
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  userID,
		Content: content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to create comment")
		return
	}
	if err := c.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load comment")
		return
	}

	utils.Created(ctx, gin.H{"comment": comment})
}

// DeleteComment removes a comment.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}
	if err := c.db.Delete(comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to delete comment")
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

func (c *CommentController) loadComment(ctx *gin.Context) (*models.Comment, bool) {
	id := parseID(ctx.Param("id"))
	var comment models.Comment
	if err := c.db.Preload("User").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "comment not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load comment")
		return nil, false
	}
	return &comment, true
}
