package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/config"
	"goblog/forms"
	"goblog/middleware"
	"goblog/models"
	"goblog/utils"
)

// PostController manages CRUD operations for posts, likes and post comments.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// ListPosts returns paginated posts filtered by category and search text.
func (p *PostController) ListPosts(ctx *gin.Context) {
	cfg := config.Get()
	page := parsePage(ctx.Query("page"))
	search := strings.TrimSpace(ctx.Query("search"))
	categoryID := parseID(ctx.Query("category"))

	// Cache homepage/category lists when no search term to avoid cache key explosion.
	cacheKey := fmt.Sprintf("cache:posts:list:cat=%d:page=%d:size=%d", categoryID, page, cfg.PageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	posts, pagination, err := models.ListPosts(p.db, models.PostFilter{
		CategoryID: categoryID,
		Search:     search,
		Page:       page,
		PageSize:   cfg.PageSize,
	}, 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list posts")
		return
	}

	payload := gin.H{"items": posts, "pagination": pagination}
	if search == "" {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetPost returns a single post with its category, comments and like state.
// The response carries the caller's liked flag, so it is never cached.
func (p *PostController) GetPost(ctx *gin.Context) {
	actorID, _ := getUserID(ctx)
	post, err := p.loadPostDetail(ctx, actorID)
	if err != nil {
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	input, imageFile, ok := bindPostInput(ctx)
	if !ok {
		return
	}

	data, errs := input.ValidatePost(p.db)
	for field, msgs := range forms.ValidateImage(imageFile, maxUploadBytes()) {
		errs[field] = append(errs[field], msgs...)
	}
	if errs.Any() {
		utils.ValidationError(ctx, 40020, errs)
		return
	}

	imageURL, ok := p.saveImage(ctx, imageFile)
	if !ok {
		return
	}

	post := models.Post{
		UserID:     userID,
		Title:      data.Title,
		Content:    data.Content,
		CategoryID: data.CategoryID,
		Image:      imageURL,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}
	if err := p.db.Preload("User").Preload("Category").First(&post, post.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	utils.Created(ctx, gin.H{"post": post})
}

// UpdatePost allows the owner to update title, content, category and image.
// The publication date and the owner never change.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	post, ok := p.loadOwnedPost(ctx)
	if !ok {
		return
	}

	input, imageFile, ok := bindPostInput(ctx)
	if !ok {
		return
	}

	data, errs := input.ValidatePost(p.db)
	for field, msgs := range forms.ValidateImage(imageFile, maxUploadBytes()) {
		errs[field] = append(errs[field], msgs...)
	}
	if errs.Any() {
		utils.ValidationError(ctx, 40024, errs)
		return
	}

	updates := map[string]interface{}{
		"title":       data.Title,
		"content":     data.Content,
		"category_id": data.CategoryID,
	}
	if imageFile != nil {
		imageURL, ok := p.saveImage(ctx, imageFile)
		if !ok {
			return
		}
		updates["image"] = imageURL
	}

	if err := p.db.Model(post).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}
	if err := p.db.Preload("User").Preload("Category").First(post, post.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost allows the owner to delete a post together with its comments and likes.
func (p *PostController) DeletePost(ctx *gin.Context) {
	post, ok := p.loadOwnedPost(ctx)
	if !ok {
		return
	}

	if err := p.db.Delete(post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// ToggleLike adds the caller to the post's like set, or removes them when
// already present. The delete-then-insert pair keeps double toggles idempotent
// even under concurrent requests.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}

	liked, err := models.TogglePostLike(p.db, post.ID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to toggle like")
		return
	}

	var count int64
	if err := p.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to count likes")
		return
	}

	utils.Success(ctx, gin.H{"liked": liked, "like_count": count})
}

// CreateComment allows authenticated users to comment on a post. The author
// is always the authenticated caller, never part of the payload.
func (p *PostController) CreateComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	content, errs := forms.CommentInput{Content: req.Content}.ValidateComment()
	if errs.Any() {
		utils.ValidationError(ctx, 40023, errs)
		return
	}

	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  userID,
		Content: content,
	}
	if err := p.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to create comment")
		return
	}
	if err := p.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to load comment")
		return
	}

	utils.Created(ctx, gin.H{"comment": comment})
}

// ListMyPosts returns posts created by the authenticated user, newest first.
func (p *PostController) ListMyPosts(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cfg := config.Get()
	posts, pagination, err := models.ListPosts(p.db, models.PostFilter{
		OwnerID:  userID,
		Page:     parsePage(ctx.Query("page")),
		PageSize: cfg.PageSize,
	}, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to list user posts")
		return
	}

	utils.Success(ctx, gin.H{"items": posts, "pagination": pagination})
}

// loadPost fetches the post addressed by the :id parameter.
func (p *PostController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	id := parseID(ctx.Param("id"))
	var post models.Post
	if err := p.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return nil, false
	}
	return &post, true
}

// loadOwnedPost fetches the addressed post and enforces ownership.
func (p *PostController) loadOwnedPost(ctx *gin.Context) (*models.Post, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}
	post, ok := p.loadPost(ctx)
	if !ok {
		return nil, false
	}
	if post.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40301, "you can only modify your own posts")
		return nil, false
	}
	return post, true
}

func (p *PostController) loadPostDetail(ctx *gin.Context, actorID uint) (*models.Post, error) {
	id := parseID(ctx.Param("id"))
	post, err := models.GetPostDetail(p.db, id, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return nil, err
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return nil, err
	}
	return post, nil
}

func (p *PostController) saveImage(ctx *gin.Context, fh *multipart.FileHeader) (string, bool) {
	if fh == nil {
		return "", true
	}
	url, err := utils.SaveUpload(p.db, fh, config.Get().UploadDir)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to save image")
		return "", false
	}
	return url, true
}

// bindPostInput reads post fields from a JSON body or a multipart form.
// Only multipart requests can carry an image.
func bindPostInput(ctx *gin.Context) (forms.PostInput, *multipart.FileHeader, bool) {
	if strings.HasPrefix(ctx.ContentType(), "application/json") {
		var req struct {
			Title      string      `json:"title"`
			Content    string      `json:"content"`
			CategoryID json.Number `json:"category_id"`
		}
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return forms.PostInput{}, nil, false
		}
		return forms.PostInput{
			Title:      req.Title,
			Content:    req.Content,
			CategoryID: req.CategoryID.String(),
		}, nil, true
	}

	input := forms.PostInput{
		Title:      ctx.PostForm("title"),
		Content:    ctx.PostForm("content"),
		CategoryID: ctx.PostForm("category"),
	}
	file, err := ctx.FormFile("image")
	if err != nil {
		file = nil
	}
	return input, file, true
}

func maxUploadBytes() int64 {
	return int64(config.Get().UploadMaxMB) * 1024 * 1024
}

func parsePage(raw string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return n
	}
	return 1
}

func parseID(raw string) uint {
	if n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64); err == nil {
		return uint(n)
	}
	return 0
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}
